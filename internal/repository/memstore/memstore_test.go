package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolf-tap/internal/model"
	"wolf-tap/internal/repository"
)

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Users().Create(ctx, &model.User{TelegramID: 1, ReferralCode: "WOLFAAAAAA"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestInTxCommits(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InTx(ctx, func(tx repository.Tx) error {
		u, err := tx.Users().Create(ctx, &model.User{TelegramID: 1, ReferralCode: "WOLFAAAAAA"})
		if err != nil {
			return err
		}
		_, err = tx.Ledger().Append(ctx, &model.Transaction{UserID: u.ID, Amount: 40, Type: model.TxTypeWelcomeBonus, Status: model.TxStatusCompleted})
		return err
	}))

	u, err := s.Users().GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	sum, err := s.Ledger().SumByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), sum)
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Users().Create(ctx, &model.User{TelegramID: 1, ReferralCode: "WOLFAAAAAA"})
	require.NoError(t, err)

	_, err = s.Users().Create(ctx, &model.User{TelegramID: 1, ReferralCode: "WOLFBBBBBB"})
	assert.ErrorIs(t, err, repository.ErrUserExists)

	_, err = s.Users().Create(ctx, &model.User{TelegramID: 2, ReferralCode: "WOLFAAAAAA"})
	assert.ErrorIs(t, err, repository.ErrReferralCodeTaken)
}
