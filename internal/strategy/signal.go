package strategy

import "FundRadar/internal/model"

// GenerateSignal scores 7 and 30 day momentum. Both returns are required;
// otherwise the fund is held.
func GenerateSignal(g7, g30 *float64) model.Signal {
	if g7 == nil || g30 == nil {
		return model.SignalHold
	}
	score := 0
	if *g7 > 0 {
		score++
	}
	if *g30 > 0 {
		score++
	}
	if *g7 > *g30/4 {
		score++
	}
	switch {
	case score >= 3:
		return model.SignalBuy
	case score == 0:
		return model.SignalSell
	default:
		return model.SignalHold
	}
}
