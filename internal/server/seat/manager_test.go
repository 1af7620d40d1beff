package seat_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/seatkit/seatkit/device/virtkbd"
	smgr "github.com/seatkit/seatkit/internal/server/seat"
	"github.com/seatkit/seatkit/seat"
	"github.com/seatkit/seatkit/xkb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *smgr.Manager {
	t.Helper()
	m := smgr.New(smgr.ManagerConfig{}, slog.Default())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManagerAddRemoveSeat(t *testing.T) {
	m := newManager(t)

	s, err := seat.NewWithSeatId(55001)
	require.NoError(t, err)
	require.NoError(t, m.AddSeat(s))
	assert.Same(t, s, m.GetSeat(55001))
	assert.Equal(t, []uint32{55001}, m.ListSeats())

	assert.ErrorContains(t, m.AddSeat(s), "seat 55001 already registered")
	assert.ErrorContains(t, m.AddSeat(nil), "seat is nil")

	require.NoError(t, m.RemoveSeat(55001))
	assert.Nil(t, m.GetSeat(55001))
	assert.Empty(t, m.ListSeats())
	assert.ErrorContains(t, m.RemoveSeat(55001), "seat 55001 not found")
}

func TestManagerRemoveNonEmptySeat(t *testing.T) {
	m := newManager(t)

	s, err := seat.NewWithSeatId(55002)
	require.NoError(t, err)
	require.NoError(t, m.AddSeat(s))

	d := virtkbd.New(slog.Default())
	_, err = s.Add(d)
	require.NoError(t, err)

	require.NoError(t, m.RemoveSeat(55002))
	assert.True(t, d.Keyboard().Destroyed())
}

func TestManagerRemoveKeyboardByID(t *testing.T) {
	m := newManager(t)

	s, err := seat.NewWithSeatId(55003)
	require.NoError(t, err)
	require.NoError(t, m.AddSeat(s))

	d := virtkbd.New(slog.Default())
	_, err = s.Add(d)
	require.NoError(t, err)

	assert.ErrorContains(t, m.RemoveKeyboardByID(55999, "1"), "seat 55999 not found")
	assert.Error(t, m.RemoveKeyboardByID(55003, "7"))

	require.NoError(t, m.RemoveKeyboardByID(55003, "1"))
	assert.True(t, d.Keyboard().Destroyed())
	assert.Empty(t, s.Devices())
}

func TestManagerKeymapCacheShared(t *testing.T) {
	m := newManager(t)
	c := m.Keymaps()
	require.NotNil(t, c)

	km1, err := c.Compile(xkb.DefaultLayout())
	require.NoError(t, err)
	km2, err := c.Compile(xkb.DefaultLayout())
	require.NoError(t, err)
	assert.Same(t, km1, km2)
	km1.Unref()
	km2.Unref()
}

func TestManagerDefaultKeymap(t *testing.T) {
	t.Run("builtin", func(t *testing.T) {
		m := newManager(t)

		km1, err := m.DefaultKeymap()
		require.NoError(t, err)
		km2, err := m.DefaultKeymap()
		require.NoError(t, err)
		assert.Equal(t, "us", km1.Name())
		assert.Same(t, km1, km2)
		km1.Unref()
		km2.Unref()
	})

	t.Run("layout file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "intl.yaml")
		layout := "name: test-intl\ngroups: [base, alt]\nkeys:\n  38: {symbol: a}\n"
		require.NoError(t, os.WriteFile(path, []byte(layout), 0o600))

		m := smgr.New(smgr.ManagerConfig{DefaultLayoutName: path}, slog.Default())
		t.Cleanup(func() { _ = m.Close() })

		km, err := m.DefaultKeymap()
		require.NoError(t, err)
		assert.Equal(t, "test-intl", km.Name())
		assert.Equal(t, uint32(2), km.NumGroups())
		km.Unref()
	})

	t.Run("missing file", func(t *testing.T) {
		m := smgr.New(smgr.ManagerConfig{DefaultLayoutName: "/nonexistent/layout.yaml"}, slog.Default())
		t.Cleanup(func() { _ = m.Close() })

		_, err := m.DefaultKeymap()
		assert.ErrorContains(t, err, "default layout")
	})
}

func TestManagerClose(t *testing.T) {
	m := smgr.New(smgr.ManagerConfig{}, slog.Default())

	s, err := seat.NewWithSeatId(55004)
	require.NoError(t, err)
	require.NoError(t, m.AddSeat(s))

	d := virtkbd.New(slog.Default())
	_, err = s.Add(d)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.Empty(t, m.ListSeats())
	assert.True(t, d.Keyboard().Destroyed())

	// The seat number is free again after close.
	s2, err := seat.NewWithSeatId(55004)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}
