package tco

import (
	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/listing"
)

// Engine wraps Calculate with a debug trace of every computation.
type Engine struct {
	logger *zap.Logger
}

// NewEngine returns an Engine logging to logger. A nil logger disables tracing.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("tco")}
}

// Compute calculates the TCO of item and traces the breakdown at debug level.
func (e *Engine) Compute(item listing.Raw, a Assumptions, o listing.Overrides) Result {
	res := Calculate(item, a, o)

	if ce := e.logger.Check(zap.DebugLevel, "tco computed"); ce != nil {
		fields := []zap.Field{
			zap.String("item_id", item.ItemID),
			zap.String("cpu_model", item.CPUModel),
			zap.Stringer("outcome", res.Outcome),
			zap.Bool("ac_adapter_included", o.ACAdapterIncluded),
			zap.Any("assumptions", a),
		}
		if o.Shipping != nil {
			fields = append(fields, zap.Float64("shipping_override", *o.Shipping))
		}
		if res.Outcome == listing.OutcomeComputed || res.Outcome == listing.OutcomeInvalidInput {
			b := res.Breakdown
			fields = append(fields,
				zap.Float64("price", b.Price),
				zap.Float64("energy", b.EnergyCost),
				zap.Float64("lifespan_years", b.LifespanYears),
				zap.Float64("shipping", b.ShippingCost),
				zap.Bool("free_shipping", item.FreeShipping),
				zap.Int("ram_gb", b.RAMGB),
				zap.Float64("ram_shortfall", b.RAMShortfall),
				zap.Int("storage_gb", b.StorageGB),
				zap.Float64("storage_shortfall", b.StorageShortfall),
				zap.Float64("ac_adapter", b.ACAdapterCost),
			)
		}
		if res.TCO != nil {
			fields = append(fields, zap.Float64("tco", *res.TCO))
		}
		if res.PerformancePerDollar != nil {
			fields = append(fields, zap.Float64("performance_per_dollar", *res.PerformancePerDollar))
		}
		ce.Write(fields...)
	}

	return res
}

// Derive merges a raw listing, the global assumptions and the listing's
// overrides into its derived row.
func (e *Engine) Derive(item listing.Raw, a Assumptions, o listing.Overrides) listing.Derived {
	res := e.Compute(item, a, o)
	return listing.Derived{
		Raw:                  item,
		Overrides:            o,
		TCO:                  res.TCO,
		PerformancePerDollar: res.PerformancePerDollar,
		Outcome:              res.Outcome,
	}
}
