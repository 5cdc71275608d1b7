package telemetry

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ascentops/autopilot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	gap := Gap("read altitude", io.ErrUnexpectedEOF)
	lost := Lost("read altitude", io.EOF)

	assert.True(t, IsGap(gap))
	assert.True(t, errors.Is(gap, io.ErrUnexpectedEOF))
	assert.False(t, IsGap(lost))
	assert.True(t, errors.Is(lost, ErrBoundaryLost))
	assert.False(t, IsGap(nil))
	assert.False(t, IsGap(errors.New("other")))
}

func TestApply_WritesOnlySetFields(t *testing.T) {
	rec := &Recording{}

	err := Apply(context.Background(), rec, core.ControlCommand{
		Pitch: core.Float(0.25),
		Roll:  core.Float(0),
	})
	require.NoError(t, err)

	writes := rec.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, Write{Field: "pitch", Value: 0.25}, writes[0])
	assert.Equal(t, Write{Field: "roll", Value: 0}, writes[1])
	assert.Zero(t, rec.Count("throttle"))
}

func TestApply_StageIsLast(t *testing.T) {
	rec := &Recording{}

	err := Apply(context.Background(), rec, core.ControlCommand{
		Throttle: core.Float(1),
		SAS:      core.Bool(true),
		SASMode:  core.Mode(core.SASModePrograde),
		Stage:    true,
	})
	require.NoError(t, err)

	writes := rec.Writes()
	require.Len(t, writes, 4)
	assert.Equal(t, "stage", writes[3].Field)
	assert.Equal(t, 1, rec.Stages())
	last, ok := rec.Last("sas_mode")
	require.True(t, ok)
	assert.Equal(t, core.SASModePrograde, last.Mode)
}

type failingActuator struct{ Recording }

func (f *failingActuator) SetThrottle(context.Context, float64) error {
	return Lost("set throttle", io.EOF)
}

func TestApply_PropagatesFailure(t *testing.T) {
	err := Apply(context.Background(), &failingActuator{}, core.ControlCommand{Throttle: core.Float(0)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBoundaryLost)
}
