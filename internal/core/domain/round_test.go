package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vortexlabs/vortexd/internal/core/domain"
)

func TestRoundLifecycle(t *testing.T) {
	round := domain.NewRound("round-1")
	require.Equal(t, domain.RoundStatusPending, round.Status)

	events, err := round.Start(1000, 10, 100000, 500, 1490, 430)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.RoundStatusRegisterAlices, round.Status)
	require.Equal(t, int64(1000), round.RoundTime)

	_, err = round.Start(1000, 10, 100000, 500, 1490, 430)
	require.Error(t, err, "cannot start a round twice")

	_, err = round.AdvanceToSigning("psbt", "txid", 1)
	require.Error(t, err, "cannot skip RegisterOutputs")

	events, err = round.AdvanceToRegisterOutputs(3)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.RoundStatusRegisterOutputs, round.Status)
	require.Equal(t, 3, round.AliceCount)

	events, err = round.AdvanceToSigning("cHNidA==", "deadbeef", 3)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.RoundStatusSigning, round.Status)

	events, err = round.Sign("02000000", "cafef00d", 1500)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.RoundStatusSigned, round.Status)
	require.True(t, round.IsEnded())
	require.False(t, round.IsFailed())

	_, err = round.Fail("too late")
	require.Error(t, err, "cannot fail an already-signed round")
}

func TestRoundFailFromAnyNonTerminalStatus(t *testing.T) {
	round := domain.NewRound("round-2")
	events, err := round.Fail("never started")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.RoundStatusFailed, round.Status)
	require.True(t, round.IsFailed())

	_, err = round.Fail("again")
	require.Error(t, err)
}

func TestNewRoundFromEventsReplaysState(t *testing.T) {
	round := domain.NewRound("round-3")
	_, _ = round.Start(2000, 5, 50000, 200, 745, 215)
	_, _ = round.AdvanceToRegisterOutputs(2)
	events := round.Events()

	replayed := domain.NewRoundFromEvents(events)
	require.Equal(t, round.Status, replayed.Status)
	require.Equal(t, round.AliceCount, replayed.AliceCount)
	require.Equal(t, round.RoundTime, replayed.RoundTime)
	require.Equal(t, events, replayed.Events())
}
