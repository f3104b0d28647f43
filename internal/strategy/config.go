package strategy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"trading-signals/internal/indicator"
	"trading-signals/internal/markethours"
	"trading-signals/internal/model"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid signal config")

// SpacingScope selects how the minimum-bars-between-signals gate is shared.
type SpacingScope string

const (
	// SpacingSplit keeps one counter for the L family and one for the R family.
	SpacingSplit SpacingScope = "split"
	// SpacingShared keeps a single counter for all four signal kinds.
	SpacingShared SpacingScope = "shared"
)

// Config holds every threshold and toggle of the signal pipeline. It is
// built once, validated, and never mutated while a stream runs.
type Config struct {
	// Stochastic (KDJ)
	KDJPeriod  int     `yaml:"kdj_period" json:"kdj_period" default:"9" validate:"min=1,max=500"`
	KSmooth    int     `yaml:"k_smooth" json:"k_smooth" default:"3" validate:"min=1,max=100"`
	DSmooth    int     `yaml:"d_smooth" json:"d_smooth" default:"3" validate:"min=1,max=100"`
	MinSpreadL float64 `yaml:"min_spread_long" json:"min_spread_long" default:"2.0" validate:"min=0,max=100"`
	MinSpreadR float64 `yaml:"min_spread_risk" json:"min_spread_risk" default:"6.0" validate:"min=0,max=100"`

	// MACD
	MACDFast   int `yaml:"macd_fast" json:"macd_fast" default:"12" validate:"min=1,max=500"`
	MACDSlow   int `yaml:"macd_slow" json:"macd_slow" default:"26" validate:"min=1,max=500"`
	MACDSignal int `yaml:"macd_signal" json:"macd_signal" default:"9" validate:"min=1,max=500"`

	// Confirmations
	VolumeMultiplier      float64 `yaml:"volume_multiplier" json:"volume_multiplier" default:"0.85" validate:"min=0"`
	UseVWAP               bool    `yaml:"use_vwap" json:"use_vwap" default:"true"`
	UseSignalDelay        bool    `yaml:"use_signal_delay" json:"use_signal_delay"`
	UseSlopeFilter        bool    `yaml:"use_slope_filter" json:"use_slope_filter" default:"true"`
	SlopeLength           int     `yaml:"slope_length" json:"slope_length" default:"2" validate:"min=1,max=50"`
	MinRPlusConfirmations int     `yaml:"min_rplus_confirmations" json:"min_rplus_confirmations" default:"2" validate:"min=1,max=4"`

	// Overbought gate on the risk core
	UseOverboughtGate  bool    `yaml:"use_overbought_gate" json:"use_overbought_gate"`
	OverboughtBand     float64 `yaml:"overbought_band" json:"overbought_band" default:"85" validate:"min=70,max=95"`
	OverboughtLookback int     `yaml:"overbought_lookback" json:"overbought_lookback" default:"5" validate:"min=3,max=20"`

	// Near-high + RSI divergence combo
	UseTopRSICombo      bool    `yaml:"use_top_rsi_combo" json:"use_top_rsi_combo" default:"true"`
	TopLookback         int     `yaml:"top_lookback" json:"top_lookback" default:"14" validate:"min=5,max=200"`
	TopTolerancePct     float64 `yaml:"top_tolerance_pct" json:"top_tolerance_pct" default:"0.10" validate:"min=0.05,max=2"`
	RSILength           int     `yaml:"rsi_length" json:"rsi_length" default:"21" validate:"min=7,max=60"`
	ComboRequireAboveMA bool    `yaml:"combo_require_above_ma" json:"combo_require_above_ma" default:"true"`

	// Market regime
	UseATRFilter      bool    `yaml:"use_atr_filter" json:"use_atr_filter" default:"true"`
	ATRMultiplier     float64 `yaml:"atr_multiplier" json:"atr_multiplier" default:"0.8" validate:"min=0.1"`
	UseADXFilter      bool    `yaml:"use_adx_filter" json:"use_adx_filter"`
	ADXThreshold      float64 `yaml:"adx_threshold" json:"adx_threshold" default:"20" validate:"min=5"`
	ApplyRegimeToBase bool    `yaml:"apply_regime_to_base" json:"apply_regime_to_base"`

	// Spacing
	MinBarsBetween int          `yaml:"min_bars_between" json:"min_bars_between" validate:"min=0"`
	SpacingScope   SpacingScope `yaml:"spacing_scope" json:"spacing_scope" default:"split" validate:"oneof=split shared"`

	// RiskFollowThrough requires the break-up on the previous bar and the
	// bearish bar now, instead of both on the same bar.
	RiskFollowThrough bool `yaml:"risk_follow_through" json:"risk_follow_through"`

	Timeframe       string             `yaml:"timeframe" json:"timeframe" default:"15m" validate:"required"`
	SessionLocation string             `yaml:"session_location" json:"session_location" default:"UTC"`
	DisplayMAs      []indicator.Config `yaml:"display_mas" json:"display_mas" validate:"dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report yaml names so messages match the config file
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// DefaultConfig returns the configuration with every default applied.
func DefaultConfig() Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// struct tags are static; a failure here is a programming error
		panic(fmt.Sprintf("strategy: apply defaults: %v", err))
	}
	return c
}

// Validate checks field ranges and cross-field constraints. The returned
// error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var msgs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
	}

	if c.MACDFast >= c.MACDSlow {
		msgs = append(msgs, fmt.Sprintf("macd_fast (%d) must be less than macd_slow (%d)", c.MACDFast, c.MACDSlow))
	}
	if c.Timeframe != "" {
		if _, err := model.ParseTimeframe(c.Timeframe); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if _, err := markethours.Load(c.SessionLocation); err != nil {
		msgs = append(msgs, err.Error())
	}

	if len(msgs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// historyDepth is how many frames the evaluator looks back over.
func (c *Config) historyDepth() int {
	depth := 4 // break two bars ago plus the bar before it
	if c.TopLookback+1 > depth {
		depth = c.TopLookback + 1
	}
	if c.SlopeLength+1 > depth {
		depth = c.SlopeLength + 1
	}
	return depth
}

// bankConfig sizes the indicator bank for a timeframe class.
func (c *Config) bankConfig(class model.TimeframeClass, cal *markethours.Calendar) indicator.BankConfig {
	return indicator.BankConfig{
		KDJPeriod:    c.KDJPeriod,
		KSmooth:      c.KSmooth,
		DSmooth:      c.DSmooth,
		MACDFast:     c.MACDFast,
		MACDSlow:     c.MACDSlow,
		MACDSignal:   c.MACDSignal,
		RSILength:    c.RSILength,
		TopLookback:  c.TopLookback,
		OBLookback:   c.OverboughtLookback,
		MALength:     class.MALength(),
		VolumeLength: class.VolumeLength(),
		Display:      c.DisplayMAs,
		Calendar:     cal,
	}
}
