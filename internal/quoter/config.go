package quoter

// Config sets the quoting parameters. All E8 values carry the
// fixed-point scale of the model package.
type Config struct {
	// HalfSpread is the passive quote distance (E8) from the micro
	// price on each side.
	HalfSpread int64
	// RiskAversion skews quotes against inventory: the micro price is
	// shifted by inventory (in whole units) times this amount (E8).
	RiskAversion int64
	// TakerFee is the fee (E8) paid per unit when crossing the spread.
	TakerFee int64
	// FeeSafetyMultiple scales the fee when deciding whether an
	// expected move pays for a taker entry.
	FeeSafetyMultiple int64
	// ExpectedVacuumMove is the move (E8) assumed when one book side
	// evaporates.
	ExpectedVacuumMove int64

	// VelocityThreshold is the trade rate (prints per second) above
	// which the tape is active enough for momentum and fade entries.
	// Below it the engine only range-quotes.
	VelocityThreshold float64
	// ImbalanceThreshold is the |book imbalance| (E8) required to pick
	// a direction inside a vacuum.
	ImbalanceThreshold int64
	// TakerQuantity is the size (E8) of a momentum taker entry.
	TakerQuantity int64
}

// DefaultConfig returns the production quoting parameters.
func DefaultConfig() Config {
	return Config{
		HalfSpread:         20_000,
		RiskAversion:       100,
		TakerFee:           55_000,
		FeeSafetyMultiple:  3,
		ExpectedVacuumMove: 200_000,
		VelocityThreshold:  5.0,
		ImbalanceThreshold: 30_000_000,
		TakerQuantity:      100_000_000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HalfSpread <= 0 {
		c.HalfSpread = def.HalfSpread
	}
	if c.RiskAversion <= 0 {
		c.RiskAversion = def.RiskAversion
	}
	if c.TakerFee <= 0 {
		c.TakerFee = def.TakerFee
	}
	if c.FeeSafetyMultiple <= 0 {
		c.FeeSafetyMultiple = def.FeeSafetyMultiple
	}
	if c.ExpectedVacuumMove <= 0 {
		c.ExpectedVacuumMove = def.ExpectedVacuumMove
	}
	if c.VelocityThreshold <= 0 {
		c.VelocityThreshold = def.VelocityThreshold
	}
	if c.ImbalanceThreshold <= 0 {
		c.ImbalanceThreshold = def.ImbalanceThreshold
	}
	if c.TakerQuantity <= 0 {
		c.TakerQuantity = def.TakerQuantity
	}
	return c
}
