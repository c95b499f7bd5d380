package hydro

import (
	"strconv"
	"time"

	"riverlog/internal/types"
)

// alertCooldown is the minimum interval between firings of the same alert.
const alertCooldown = time.Hour

// EvaluateAlerts checks a freshly resolved flow reading against the enabled
// alert configs for a site and returns the alerts that fire now.
//
// high and flood fire when flow >= threshold; low fires when
// flow <= threshold. Kinds evaluate independently, so a high and a flood
// alert can both fire in one pass. An alert whose LastTriggeredAt is within
// the past hour is suppressed. A sentinel reading ("No Data" or "Error")
// fires nothing and leaves every LastTriggeredAt untouched.
//
// Fired configs have LastTriggeredAt set to now in place; persisting that
// update is the caller's responsibility.
func EvaluateAlerts(flowDisplay string, configs []*types.FlowAlertConfig, now time.Time) []types.TriggeredAlert {
	if types.IsFlowSentinel(flowDisplay) {
		return nil
	}
	flow, err := strconv.ParseFloat(flowDisplay, 64)
	if err != nil {
		return nil
	}

	triggered := make([]types.TriggeredAlert, 0)
	for _, cfg := range configs {
		if !cfg.Enabled || !crossed(cfg.Kind, flow, cfg.ThresholdCfs) {
			continue
		}
		if cfg.LastTriggeredAt != nil && now.Sub(*cfg.LastTriggeredAt) < alertCooldown {
			continue
		}
		t := now
		cfg.LastTriggeredAt = &t
		triggered = append(triggered, types.TriggeredAlert{
			SiteNumber:   cfg.SiteNumber,
			Kind:         cfg.Kind,
			ThresholdCfs: cfg.ThresholdCfs,
			FlowCfs:      flow,
			TriggeredAt:  now,
		})
	}
	return triggered
}

func crossed(kind types.AlertKind, flow, threshold float64) bool {
	switch kind {
	case types.AlertKindHigh, types.AlertKindFlood:
		return flow >= threshold
	case types.AlertKindLow:
		return flow <= threshold
	}
	return false
}
