package config

import "testing"

func setAll(t *testing.T) {
	t.Setenv(EnvWorkflowName, "sensor-flow")
	t.Setenv(EnvTargetBucket, "dst")
	t.Setenv(EnvReadingsTable, "readings")
	t.Setenv(EnvDestinationEmail, "a@b.com")
	t.Setenv(EnvSenderEmail, "noreply@b.com")
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	setAll(t)

	cfg := Load()
	if cfg.WorkflowName != "sensor-flow" || cfg.TargetBucket != "dst" ||
		cfg.ReadingsTable != "readings" || cfg.DestinationEmail != "a@b.com" ||
		cfg.SenderEmail != "noreply@b.com" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestRequireDispatch(t *testing.T) {
	setAll(t)
	if err := Load().RequireDispatch(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	t.Setenv(EnvWorkflowName, "")
	if err := Load().RequireDispatch(); err == nil {
		t.Error("expected an error for a missing workflow name")
	}
}

func TestRequireProcess(t *testing.T) {
	setAll(t)
	if err := Load().RequireProcess(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	for _, envVar := range []string{EnvTargetBucket, EnvReadingsTable, EnvDestinationEmail, EnvSenderEmail} {
		setAll(t)
		t.Setenv(envVar, "")
		if err := Load().RequireProcess(); err == nil {
			t.Errorf("expected an error when %s is missing", envVar)
		}
	}
}
