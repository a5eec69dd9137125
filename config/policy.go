package config

// Policy holds the incentive constants applied uniformly across the service.
// All amounts are integer cents: 1 currency unit == 100 cents.
type Policy struct {
	FeePerImageCents     int64
	FeePerLabelCents     int64
	RewardPerLabelCents  int64
	StartingBalanceCents int64
}

// LoadPolicy reads the incentive constants from the environment. Every value
// is optional; the defaults match the documented product behavior
// (1.00 per image, 0.10 per non-empty label, 2.00 per completed labeling).
func LoadPolicy() Policy {
	return Policy{
		FeePerImageCents:     optionalCents("FEE_PER_IMAGE_CENTS", 100),
		FeePerLabelCents:     optionalCents("FEE_PER_LABEL_CENTS", 10),
		RewardPerLabelCents:  optionalCents("REWARD_PER_LABEL_CENTS", 200),
		StartingBalanceCents: optionalCents("STARTING_BALANCE_CENTS", 10000),
	}
}

// UploadCostCents computes the price of admitting a batch: a flat fee per
// image plus a fee per candidate label attached to an image. A batch of 2
// images sharing 3 distinct labels pays for 6 label attachments.
func (p Policy) UploadCostCents(imageCount, labelCount int) int64 {
	return int64(imageCount)*p.FeePerImageCents + int64(imageCount)*int64(labelCount)*p.FeePerLabelCents
}
