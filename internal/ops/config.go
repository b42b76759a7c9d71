// Package ops loads the runtime configuration shared by the feed,
// record and analyze entrypoints.
package ops

import (
	"encoding/json"
	"os"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/heatmap"
	"main/internal/model"
	"main/internal/quoter"
	"main/internal/recorder"
	"main/internal/signal"
)

// FileConfig mirrors the JSON config layout. Fixed-point fields are
// decimal strings so config files never carry raw scaled integers;
// zero or missing values fall back to the engine defaults.
type FileConfig struct {
	Symbol     string `json:"symbol"`
	Instrument uint8  `json:"instrument"`

	Queue struct {
		Capacity int `json:"capacity"`
	} `json:"queue"`

	Recorder struct {
		Dir           string `json:"dir"`
		FilePrefix    string `json:"filePrefix"`
		RotateMinutes int    `json:"rotateMinutes"`
		FlushSeconds  int    `json:"flushSeconds"`
	} `json:"recorder"`

	Signal struct {
		WindowSize      int    `json:"windowSize"`
		MaxLatencyMS    int    `json:"maxLatencyMs"`
		VacuumThreshold string `json:"vacuumThreshold"`
		WallThreshold   string `json:"wallThreshold"`
		TrapMinTrades   int    `json:"trapMinTrades"`
		TrapToxicity    string `json:"trapToxicity"`
		TrapPriceMargin string `json:"trapPriceMargin"`
	} `json:"signal"`

	Quoter struct {
		HalfSpread         string  `json:"halfSpread"`
		RiskAversion       string  `json:"riskAversion"`
		TakerFee           string  `json:"takerFee"`
		FeeSafetyMultiple  int64   `json:"feeSafetyMultiple"`
		ExpectedVacuumMove string  `json:"expectedVacuumMove"`
		VelocityThreshold  float64 `json:"velocityThreshold"`
		ImbalanceThreshold string  `json:"imbalanceThreshold"`
		TakerQuantity      string  `json:"takerQuantity"`
	} `json:"quoter"`

	Heatmap struct {
		BucketStep             string `json:"bucketStep"`
		LiquidationOffset      string `json:"liquidationOffset"`
		ConfirmationMultiplier int64  `json:"confirmationMultiplier"`
	} `json:"heatmap"`

	Audit struct {
		Path string `json:"path"`
	} `json:"audit"`

	Dashboard struct {
		Path         string `json:"path"`
		FlushSeconds int    `json:"flushSeconds"`
	} `json:"dashboard"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Symbol     string
	Instrument uint8

	QueueCapacity int

	Recorder recorder.Config
	Signal   signal.Config
	Quoter   quoter.Config
	Heatmap  heatmap.Config

	AuditPath string

	DashboardPath  string
	DashboardFlush time.Duration
}

// Load reads a JSON config file and resolves every section. A missing
// path yields pure defaults.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config")
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "parse config")
		}
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	loaded := Loaded{
		Symbol:         cfg.Symbol,
		Instrument:     cfg.Instrument,
		QueueCapacity:  cfg.Queue.Capacity,
		AuditPath:      cfg.Audit.Path,
		DashboardPath:  cfg.Dashboard.Path,
		DashboardFlush: time.Duration(cfg.Dashboard.FlushSeconds) * time.Second,
	}
	if loaded.Symbol == "" {
		loaded.Symbol = "BTCUSDT"
	}
	if loaded.DashboardFlush <= 0 {
		loaded.DashboardFlush = time.Second
	}

	loaded.Recorder = recorder.Config{
		Dir:           cfg.Recorder.Dir,
		FilePrefix:    cfg.Recorder.FilePrefix,
		RotatePeriod:  time.Duration(cfg.Recorder.RotateMinutes) * time.Minute,
		FlushInterval: time.Duration(cfg.Recorder.FlushSeconds) * time.Second,
	}
	if loaded.Recorder.Dir == "" {
		loaded.Recorder.Dir = "data"
	}

	var err error
	loaded.Signal, err = resolveSignal(cfg)
	if err != nil {
		return Loaded{}, err
	}
	loaded.Quoter, err = resolveQuoter(cfg)
	if err != nil {
		return Loaded{}, err
	}
	loaded.Heatmap, err = resolveHeatmap(cfg)
	if err != nil {
		return Loaded{}, err
	}
	return loaded, nil
}

func resolveSignal(cfg FileConfig) (signal.Config, error) {
	out := signal.Config{
		WindowSize:    cfg.Signal.WindowSize,
		MaxLatency:    time.Duration(cfg.Signal.MaxLatencyMS) * time.Millisecond,
		TrapMinTrades: cfg.Signal.TrapMinTrades,
	}
	var err error
	if out.VacuumThreshold, err = parseE8Field("signal.vacuumThreshold", cfg.Signal.VacuumThreshold); err != nil {
		return signal.Config{}, err
	}
	if out.WallThreshold, err = parseE8Field("signal.wallThreshold", cfg.Signal.WallThreshold); err != nil {
		return signal.Config{}, err
	}
	if out.TrapToxicity, err = parseE8Field("signal.trapToxicity", cfg.Signal.TrapToxicity); err != nil {
		return signal.Config{}, err
	}
	if out.TrapPriceMargin, err = parseE8Field("signal.trapPriceMargin", cfg.Signal.TrapPriceMargin); err != nil {
		return signal.Config{}, err
	}
	return out, nil
}

func resolveQuoter(cfg FileConfig) (quoter.Config, error) {
	out := quoter.Config{
		FeeSafetyMultiple: cfg.Quoter.FeeSafetyMultiple,
		VelocityThreshold: cfg.Quoter.VelocityThreshold,
	}
	var err error
	if out.HalfSpread, err = parseE8Field("quoter.halfSpread", cfg.Quoter.HalfSpread); err != nil {
		return quoter.Config{}, err
	}
	if out.RiskAversion, err = parseE8Field("quoter.riskAversion", cfg.Quoter.RiskAversion); err != nil {
		return quoter.Config{}, err
	}
	if out.TakerFee, err = parseE8Field("quoter.takerFee", cfg.Quoter.TakerFee); err != nil {
		return quoter.Config{}, err
	}
	if out.ExpectedVacuumMove, err = parseE8Field("quoter.expectedVacuumMove", cfg.Quoter.ExpectedVacuumMove); err != nil {
		return quoter.Config{}, err
	}
	if out.ImbalanceThreshold, err = parseE8Field("quoter.imbalanceThreshold", cfg.Quoter.ImbalanceThreshold); err != nil {
		return quoter.Config{}, err
	}
	if out.TakerQuantity, err = parseE8Field("quoter.takerQuantity", cfg.Quoter.TakerQuantity); err != nil {
		return quoter.Config{}, err
	}
	return out, nil
}

func resolveHeatmap(cfg FileConfig) (heatmap.Config, error) {
	out := heatmap.Config{
		ConfirmationMultiplier: cfg.Heatmap.ConfirmationMultiplier,
	}
	var err error
	if out.BucketStep, err = parseE8Field("heatmap.bucketStep", cfg.Heatmap.BucketStep); err != nil {
		return heatmap.Config{}, err
	}
	if out.LiquidationOffset, err = parseE8Field("heatmap.liquidationOffset", cfg.Heatmap.LiquidationOffset); err != nil {
		return heatmap.Config{}, err
	}
	return out, nil
}

func parseE8Field(name, value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	v, err := model.ParseE8(value)
	if err != nil {
		return 0, errors.Wrap(err, "config field "+name)
	}
	return v, nil
}
