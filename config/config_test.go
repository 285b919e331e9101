package config

import "testing"

func TestLoadEmbeddedDefaultsValidates(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Dimension < 1 || cfg.Dimension > 3 {
		t.Errorf("default dimension = %d, want 1..3", cfg.Dimension)
	}
	switch cfg.SPHType {
	case SSPH, DISPH, GSPH, GDISPH:
	default:
		t.Errorf("default sph_type = %q, not one of the known variants", cfg.SPHType)
	}
}

func TestComputeDerivedEffectiveDim(t *testing.T) {
	cfg := &Config{Dimension: 3, TwoAndHalfSim: true}
	cfg.computeDerived()
	if cfg.Derived.EffectiveDim != 2 {
		t.Errorf("EffectiveDim with TwoAndHalfSim = %d, want 2", cfg.Derived.EffectiveDim)
	}

	cfg2 := &Config{Dimension: 3, TwoAndHalfSim: false}
	cfg2.computeDerived()
	if cfg2.Derived.EffectiveDim != 3 {
		t.Errorf("EffectiveDim without TwoAndHalfSim = %d, want 3", cfg2.Derived.EffectiveDim)
	}
}

func TestValidateRejectsBadDimension(t *testing.T) {
	cfg := validConfig()
	cfg.Dimension = 4
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with dimension=4, want error")
	}
}

func TestValidateRejectsEndBeforeStart(t *testing.T) {
	cfg := validConfig()
	cfg.Time.Start = 1.0
	cfg.Time.End = 0.5
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with time.end < time.start, want error")
	}
}

func TestValidateRejectsInvertedAlphaBounds(t *testing.T) {
	cfg := validConfig()
	cfg.AV.UseTimeDependentAV = true
	cfg.AV.AlphaMax = 0.5
	cfg.AV.AlphaMin = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with av.alpha_max < av.alpha_min, want error")
	}
}

func TestValidateAllowsInvertedAlphaBoundsWhenTimeDependentAVDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.AV.UseTimeDependentAV = false
	cfg.AV.AlphaMax = 0.5
	cfg.AV.AlphaMin = 1.5
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with av disabled should ignore alpha bound ordering, got: %v", err)
	}
}

func TestValidateRejectsUnknownSPHType(t *testing.T) {
	cfg := validConfig()
	cfg.SPHType = "not-a-real-type"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with unknown sph_type, want error")
	}
}

func TestValidateRejectsUnknownKernel(t *testing.T) {
	cfg := validConfig()
	cfg.Kernel = "not-a-real-kernel"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with unknown kernel, want error")
	}
}

func validConfig() *Config {
	return &Config{
		Dimension: 3,
		SPHType:   SSPH,
		Kernel:    CubicSpline,
		Time:      TimeConfig{Start: 0, End: 1},
	}
}
