package nakama

import (
	"partyboard/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const metricsPrefix = "partyboard_"

// NakamaMetricsAdapter implements ports.MetricsPort using Nakama's metrics counters.
type NakamaMetricsAdapter struct {
	nk   runtime.NakamaModule
	tags map[string]string
}

// NewNakamaMetricsAdapter creates a metrics adapter. A nil module yields a no-op port.
func NewNakamaMetricsAdapter(nk runtime.NakamaModule) ports.MetricsPort {
	if nk == nil {
		return ports.NoopMetrics{}
	}
	return &NakamaMetricsAdapter{nk: nk, tags: map[string]string{"game": GameLabel}}
}

func (a *NakamaMetricsAdapter) add(name string, extra map[string]string) {
	tags := make(map[string]string, len(a.tags)+len(extra))
	for k, v := range a.tags {
		tags[k] = v
	}
	for k, v := range extra {
		tags[k] = v
	}
	a.nk.MetricsCounterAdd(metricsPrefix+name, tags, 1)
}

func (a *NakamaMetricsAdapter) TurnAdvanced(reason string) {
	a.add("turns_advanced", map[string]string{"reason": reason})
}

func (a *NakamaMetricsAdapter) DiceRolled() {
	a.add("dice_rolled", nil)
}

func (a *NakamaMetricsAdapter) MiniGameGraded(kind, outcome string) {
	a.add("minigames_graded", map[string]string{"kind": kind, "outcome": outcome})
}

func (a *NakamaMetricsAdapter) SessionEnded(reason string) {
	a.add("sessions_ended", map[string]string{"reason": reason})
}

func (a *NakamaMetricsAdapter) RequestRejected(code string) {
	a.add("requests_rejected", map[string]string{"code": code})
}
