package controller

import (
	"time"

	"github.com/apophisnow/icemaker/internal/models"
)

func coolingRelays(pump bool) models.RelayBank {
	return models.RelayBank{
		Compressor1:       true,
		Compressor2:       true,
		CondenserFan:      true,
		RecirculatingPump: pump,
	}
}

// desiredRelays is the output set a state calls for at time now.
func (c *Controller) desiredRelays(s models.State, now time.Time) models.RelayBank {
	var b models.RelayBank
	switch s.Kind() {
	case models.KindPowerOn:
		b = primingRelays(c.cfg.Priming, now.Sub(c.enteredAt))
	case models.KindChill:
		b = coolingRelays(false)
	case models.KindIce:
		b = coolingRelays(true)
	case models.KindHeat:
		b.HotGasSolenoid = true
		if !c.harvestStartedAt.IsZero() {
			b.IceCutter = true
			b.WaterValve = true
		}
	}
	b.LED = s.InCycle()
	return b
}

// primingRelays walks the flush, pump, and fill steps.
func primingRelays(p models.PrimingConfig, elapsed time.Duration) models.RelayBank {
	var b models.RelayBank
	if !p.Enabled {
		return b
	}
	flush := time.Duration(p.FlushSeconds) * time.Second
	pump := flush + time.Duration(p.PumpSeconds)*time.Second
	fill := pump + time.Duration(p.FillSeconds)*time.Second
	switch {
	case elapsed < flush:
		b.WaterValve = true
	case elapsed < pump:
		b.RecirculatingPump = true
	case elapsed < fill:
		b.WaterValve = true
	}
	return b
}
