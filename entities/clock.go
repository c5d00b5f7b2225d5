package entities

import (
	"fmt"

	"github.com/nim65s/dynamic-graph/command"
	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/signal"
)

// ClockClassName is the class the clock factory registers under.
const ClockClassName = "Clock"

// defaultClockPeriod is the seconds-per-tick conversion a fresh clock
// starts with, the usual 1 kHz control rate.
const defaultClockPeriod = 0.001

// Clock converts the logical evaluation tick into seconds on its "time"
// output. The conversion factor is the sample period, adjustable at
// runtime through the setPeriod command.
type Clock struct {
	*entity.Entity

	period float64
	time   *signal.Of[float64]
}

// NewClock builds a clock entity into reg.
func NewClock(reg *entity.Registry, name string) (*Clock, error) {
	base, err := entity.NewInRegistry(reg, ClockClassName, name)
	if err != nil {
		return nil, err
	}

	c := &Clock{Entity: base, period: defaultClockPeriod}
	c.time = signal.New[float64](fmt.Sprintf("Clock(%s)::output(float64)::time", base.Name()))
	c.time.SetFunction(func(t signal.Time) (float64, error) {
		return float64(t) * c.period, nil
	})

	if err := base.RegisterSignal(c.time); err != nil {
		base.Destroy()
		return nil, err
	}

	getter := command.NewDirectGetter(&c.period, "Get the sample period in seconds per tick.")
	setter := command.NewDirectSetter(&c.period, "Set the sample period in seconds per tick.")
	if err := base.AddCommand("getPeriod", getter); err != nil {
		base.Destroy()
		return nil, err
	}
	if err := base.AddCommand("setPeriod", setter); err != nil {
		base.Destroy()
		return nil, err
	}

	base.SetDocString("Logical time source: emits tick * period seconds on its time output.")
	return c, nil
}

// Time returns the seconds output signal.
func (c *Clock) Time() *signal.Of[float64] { return c.time }

// Period returns the current seconds-per-tick conversion factor.
func (c *Clock) Period() float64 { return c.period }
