package store

import (
	"time"

	"github.com/ClickHouse/ch-go/proto"

	"github.com/KI7MT/ki7mt-flare-lab/internal/instrument"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// Observation is one instrument record tied to its flare by peak time.
type Observation struct {
	Peak time.Time
	instrument.Record
}

// EventBatch holds column data for native insert.
type EventBatch struct {
	Start     *proto.ColDateTime
	Peak      *proto.ColDateTime
	End       *proto.ColDateTime
	Class     *proto.ColStr
	ClassRank *proto.ColFloat64
	AIALoc    *proto.ColStr
	AIAXCen   *proto.ColFloat64
	AIAYCen   *proto.ColFloat64
	Loc       *proto.ColStr
	NOAAAR    *proto.ColInt32
	Source    *proto.ColStr
}

func NewEventBatch() *EventBatch {
	return &EventBatch{
		Start:     new(proto.ColDateTime),
		Peak:      new(proto.ColDateTime),
		End:       new(proto.ColDateTime),
		Class:     new(proto.ColStr),
		ClassRank: new(proto.ColFloat64),
		AIALoc:    new(proto.ColStr),
		AIAXCen:   new(proto.ColFloat64),
		AIAYCen:   new(proto.ColFloat64),
		Loc:       new(proto.ColStr),
		NOAAAR:    new(proto.ColInt32),
		Source:    new(proto.ColStr),
	}
}

func (b *EventBatch) Reset() {
	b.Start.Reset()
	b.Peak.Reset()
	b.End.Reset()
	b.Class.Reset()
	b.ClassRank.Reset()
	b.AIALoc.Reset()
	b.AIAXCen.Reset()
	b.AIAYCen.Reset()
	b.Loc.Reset()
	b.NOAAAR.Reset()
	b.Source.Reset()
}

func (b *EventBatch) Len() int {
	return b.Peak.Rows()
}

func (b *EventBatch) Input() proto.Input {
	return proto.Input{
		{Name: "flare_start", Data: b.Start},
		{Name: "flare_peak", Data: b.Peak},
		{Name: "flare_end", Data: b.End},
		{Name: "class", Data: b.Class},
		{Name: "class_rank", Data: b.ClassRank},
		{Name: "aia_loc", Data: b.AIALoc},
		{Name: "aia_xcen", Data: b.AIAXCen},
		{Name: "aia_ycen", Data: b.AIAYCen},
		{Name: "loc", Data: b.Loc},
		{Name: "noaa_ar", Data: b.NOAAAR},
		{Name: "source", Data: b.Source},
	}
}

func (b *EventBatch) AddEvent(e solar.Event) {
	b.Start.Append(e.Start)
	b.Peak.Append(e.Peak)
	b.End.Append(e.End)
	b.Class.Append(e.Class.String())
	b.ClassRank.Append(e.Class.Rank())
	b.AIALoc.Append(e.AIALoc)
	b.AIAXCen.Append(e.AIAXCen)
	b.AIAYCen.Append(e.AIAYCen)
	b.Loc.Append(e.Loc)
	b.NOAAAR.Append(e.NOAAAR)
	b.Source.Append(e.Source)
}

// ObservationBatch holds column data for native insert.
type ObservationBatch struct {
	Peak       *proto.ColDateTime
	Instrument *proto.ColStr
	Observed   *proto.ColInt8
	Triggered  *proto.ColInt8
	Frac       *proto.ColFloat64
	FracRise   *proto.ColFloat64
	FracFall   *proto.ColFloat64
}

func NewObservationBatch() *ObservationBatch {
	return &ObservationBatch{
		Peak:       new(proto.ColDateTime),
		Instrument: new(proto.ColStr),
		Observed:   new(proto.ColInt8),
		Triggered:  new(proto.ColInt8),
		Frac:       new(proto.ColFloat64),
		FracRise:   new(proto.ColFloat64),
		FracFall:   new(proto.ColFloat64),
	}
}

func (b *ObservationBatch) Reset() {
	b.Peak.Reset()
	b.Instrument.Reset()
	b.Observed.Reset()
	b.Triggered.Reset()
	b.Frac.Reset()
	b.FracRise.Reset()
	b.FracFall.Reset()
}

func (b *ObservationBatch) Len() int {
	return b.Peak.Rows()
}

func (b *ObservationBatch) Input() proto.Input {
	return proto.Input{
		{Name: "flare_peak", Data: b.Peak},
		{Name: "instrument", Data: b.Instrument},
		{Name: "observed", Data: b.Observed},
		{Name: "flare_triggered", Data: b.Triggered},
		{Name: "frac_obs", Data: b.Frac},
		{Name: "frac_obs_rise", Data: b.FracRise},
		{Name: "frac_obs_fall", Data: b.FracFall},
	}
}

func (b *ObservationBatch) AddObservation(o Observation) {
	b.Peak.Append(o.Peak)
	b.Instrument.Append(o.Instrument)
	b.Observed.Append(int8(o.Observed))
	b.Triggered.Append(int8(o.Triggered))
	b.Frac.Append(o.Frac)
	b.FracRise.Append(o.FracRise)
	b.FracFall.Append(o.FracFall)
}
