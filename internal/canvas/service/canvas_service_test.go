package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
)

func newCanvasFixture(t *testing.T) (*CanvasService, *fakeCanvasRepo, *fakeLayerRepo, string) {
	t.Helper()
	canvases := newFakeCanvasRepo()
	layers := newFakeLayerRepo()
	svc := NewCanvasService(canvases, layers)

	c, err := svc.CreateCanvas(context.Background(), 35.6812, 139.7671, 15)
	require.NoError(t, err)
	return svc, canvases, layers, c.ID
}

func TestCreateCanvasAddsDefaultLayer(t *testing.T) {
	svc, _, _, id := newCanvasFixture(t)

	stack, err := svc.ListLayers(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, stack, 1)
	assert.Equal(t, DefaultLayerName, stack[0].Name)
	assert.Equal(t, 0, stack[0].Order)
	assert.True(t, stack[0].Visible)
}

func TestCreateCanvasRejectsBadGeo(t *testing.T) {
	svc := NewCanvasService(newFakeCanvasRepo(), newFakeLayerRepo())
	ctx := context.Background()

	cases := []struct {
		name     string
		lat, lng float64
		zoom     int
	}{
		{"lat too high", 91, 0, 15},
		{"lng too low", 0, -181, 15},
		{"zoom zero", 0, 0, 0},
		{"zoom past max", 0, 0, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateCanvas(ctx, tc.lat, tc.lng, tc.zoom)
			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSetSharedViewTriple(t *testing.T) {
	svc, canvases, _, id := newCanvasFixture(t)
	ctx := context.Background()

	lat, lng, zoom := 35.0, 139.0, 12

	require.NoError(t, svc.SetSharedView(ctx, id, &lat, &lng, &zoom))
	c, err := canvases.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, c.Shared())

	// Clearing resets all three.
	require.NoError(t, svc.SetSharedView(ctx, id, nil, nil, nil))
	c, err = canvases.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, c.Shared())

	// A partial triple never reaches the repository.
	err = svc.SetSharedView(ctx, id, &lat, nil, &zoom)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	c, err = canvases.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, c.Shared())
}

func TestAddLayerCapped(t *testing.T) {
	svc, _, _, id := newCanvasFixture(t)
	ctx := context.Background()

	for i := 1; i < domain.MaxLayersPerCanvas; i++ {
		l, err := svc.AddLayer(ctx, id, "Sketch")
		require.NoError(t, err)
		assert.Equal(t, i, l.Order)
	}

	_, err := svc.AddLayer(ctx, id, "One too many")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLayerNameValidation(t *testing.T) {
	svc, _, _, id := newCanvasFixture(t)
	ctx := context.Background()

	_, err := svc.AddLayer(ctx, id, "   ")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.AddLayer(ctx, id, strings.Repeat("x", domain.MaxLayerNameLen+1))
	require.ErrorAs(t, err, &verr)

	// Names are trimmed before storage.
	l, err := svc.AddLayer(ctx, id, "  Inked  ")
	require.NoError(t, err)
	assert.Equal(t, "Inked", l.Name)
}

func TestReorderLayers(t *testing.T) {
	svc, _, _, id := newCanvasFixture(t)
	ctx := context.Background()

	second, err := svc.AddLayer(ctx, id, "Second")
	require.NoError(t, err)
	third, err := svc.AddLayer(ctx, id, "Third")
	require.NoError(t, err)

	stack, err := svc.ListLayers(ctx, id)
	require.NoError(t, err)
	first := stack[0]

	require.NoError(t, svc.ReorderLayers(ctx, id, []string{third.ID, first.ID, second.ID}))

	stack, err = svc.ListLayers(ctx, id)
	require.NoError(t, err)
	require.Len(t, stack, 3)
	assert.Equal(t, third.ID, stack[0].ID)
	assert.Equal(t, first.ID, stack[1].ID)
	assert.Equal(t, second.ID, stack[2].ID)

	var verr *domain.ValidationError
	assert.ErrorAs(t, svc.ReorderLayers(ctx, id, []string{first.ID}), &verr)
	assert.ErrorAs(t, svc.ReorderLayers(ctx, id, []string{first.ID, first.ID, second.ID}), &verr)
}

func TestDeleteLayerKeepsLastOne(t *testing.T) {
	svc, _, _, id := newCanvasFixture(t)
	ctx := context.Background()

	stack, err := svc.ListLayers(ctx, id)
	require.NoError(t, err)
	only := stack[0]

	assert.ErrorIs(t, svc.DeleteLayer(ctx, id, only.ID), domain.ErrLastLayer)

	l, err := svc.AddLayer(ctx, id, "Scratch")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteLayer(ctx, id, l.ID))

	assert.ErrorIs(t, svc.DeleteLayer(ctx, id, only.ID), domain.ErrLastLayer)
}

func TestUpdatePosition(t *testing.T) {
	svc, canvases, _, id := newCanvasFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdatePosition(ctx, id, 51.5074, -0.1278, 10))
	c, err := canvases.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 51.5074, c.CenterLat)
	assert.Equal(t, -0.1278, c.CenterLng)
	assert.Equal(t, 10, c.Zoom)

	assert.ErrorIs(t, svc.UpdatePosition(ctx, mustCanvasID(9), 0, 0, 5), domain.ErrCanvasNotFound)
}
