package main

import (
	"context"
	"testing"

	appconfig "github.com/plenasaude/quote-assistant/internal/config"
)

func TestLoadAWSSkipsWhenUnused(t *testing.T) {
	awsCfg, err := loadAWS(context.Background(), &appconfig.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg != nil {
		t.Fatalf("expected no aws config when nothing needs it")
	}
}

func TestLoadAWSForLeadQueue(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "test",
		LeadQueueURL:       "http://localhost:4566/000000000000/leads",
	}
	awsCfg, err := loadAWS(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg == nil || awsCfg.Region != "us-east-1" {
		t.Fatalf("expected aws config for us-east-1, got %+v", awsCfg)
	}
}
