package weightproof

import "testing"

func TestDefaultTestnetConstantsValidates(t *testing.T) {
	if err := DefaultTestnetConstants().Validate(); err != nil {
		t.Fatalf("default testnet constants failed validation: %v", err)
	}
}

func TestConstantsValidateRejectsZeroFields(t *testing.T) {
	base := DefaultTestnetConstants()

	zeroSubEpoch := base
	zeroSubEpoch.SubEpochBlocks = 0
	if err := zeroSubEpoch.Validate(); err == nil {
		t.Fatalf("expected error for zero SubEpochBlocks")
	}

	zeroThresholdDen := base
	zeroThresholdDen.WeightProofThresholdDen = 0
	if err := zeroThresholdDen.Validate(); err == nil {
		t.Fatalf("expected error for zero WeightProofThresholdDen")
	}

	zeroRecentBlocks := base
	zeroRecentBlocks.WeightProofRecentBlocks = 0
	if err := zeroRecentBlocks.Validate(); err == nil {
		t.Fatalf("expected error for zero WeightProofRecentBlocks")
	}
}
