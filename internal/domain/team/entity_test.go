package team

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTeam(t *testing.T) {
	tm := NewTeam("ev-1", "  チームA ", "leader", "ABC234", 3)

	assert.NotEmpty(t, tm.ID)
	assert.Equal(t, "チームA", tm.Name)
	assert.Equal(t, StatusForming, tm.Status)
	assert.Equal(t, 1, tm.AcceptedCount())
	assert.Equal(t, []string{"leader"}, tm.AcceptedMembers())
	assert.Equal(t, 2, tm.SlotsLeft())
	assert.False(t, tm.ReachedTarget())
	require.NoError(t, tm.Validate())
}

func TestValidateSize(t *testing.T) {
	assert.NoError(t, ValidateSize(3, 2, 5))
	assert.NoError(t, ValidateSize(2, 2, 5))
	assert.NoError(t, ValidateSize(5, 2, 5))
	assert.ErrorIs(t, ValidateSize(1, 2, 5), ErrInvalidTargetSize)
	assert.ErrorIs(t, ValidateSize(6, 2, 5), ErrInvalidTargetSize)
}

func TestTeam_Join(t *testing.T) {
	t.Run("目標人数に達した参加で true を返す", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 3)

		done, err := tm.Join("u-2")
		require.NoError(t, err)
		assert.False(t, done)

		done, err = tm.Join("u-3")
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, StatusForming, tm.Status, "状態の確定は Complete で行う")
	})

	t.Run("同じメンバーは二重参加できない", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 3)

		_, err := tm.Join("leader")

		assert.ErrorIs(t, err, ErrAlreadyInTeam)
	})

	t.Run("満員のチーム", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 2)
		_, err := tm.Join("u-2")
		require.NoError(t, err)

		_, err = tm.Join("u-3")
		assert.ErrorIs(t, err, ErrTeamFull)
	})

	t.Run("complete のチーム", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 1)
		require.NoError(t, tm.Complete())

		_, err := tm.Join("u-2")
		assert.ErrorIs(t, err, ErrTeamFull)
	})

	t.Run("解散したチーム", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 3)
		require.NoError(t, tm.Disband("leader"))

		_, err := tm.Join("u-2")
		assert.ErrorIs(t, err, ErrTeamNotActive)
	})
}

func TestTeam_Complete(t *testing.T) {
	t.Run("一人チームは作成時点で完了できる", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 1)

		require.NoError(t, tm.Complete())
		assert.Equal(t, StatusComplete, tm.Status)
	})

	t.Run("二度目は状態競合", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 1)
		require.NoError(t, tm.Complete())

		assert.ErrorIs(t, tm.Complete(), ErrTeamNotActive)
	})

	t.Run("人数不足では完了しない", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 2)

		assert.ErrorIs(t, tm.Complete(), ErrTeamNotActive)
		assert.Equal(t, StatusForming, tm.Status)
	})
}

func TestTeam_Disband(t *testing.T) {
	t.Run("リーダー以外は解散できない", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 3)
		assert.ErrorIs(t, tm.Disband("u-2"), ErrNotLeader)
	})

	t.Run("完了したチームは解散できない", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 1)
		require.NoError(t, tm.Complete())
		assert.ErrorIs(t, tm.Disband("leader"), ErrCannotDisbandComplete)
	})

	t.Run("解散済みのチームは再度解散できない", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 3)
		require.NoError(t, tm.Disband("leader"))
		assert.ErrorIs(t, tm.Disband("leader"), ErrTeamNotActive)
	})

	t.Run("解散", func(t *testing.T) {
		tm := NewTeam("ev-1", "A", "leader", "ABC234", 3)
		require.NoError(t, tm.Disband("leader"))
		assert.Equal(t, StatusCancelled, tm.Status)
		assert.False(t, tm.IsActive())
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr error
	}{
		{"編成中から完了", StatusForming, StatusComplete, nil},
		{"編成中から解散", StatusForming, StatusCancelled, nil},
		{"完了から解散", StatusComplete, StatusCancelled, ErrCannotDisbandComplete},
		{"完了から完了", StatusComplete, StatusComplete, ErrTeamNotActive},
		{"解散から完了", StatusCancelled, StatusComplete, ErrTeamNotActive},
		{"解散から解散", StatusCancelled, StatusCancelled, ErrTeamNotActive},
		{"完了から編成中には戻らない", StatusComplete, StatusForming, ErrTeamNotActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateInviteCode()
		require.NoError(t, err)
		assert.Len(t, code, InviteCodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(inviteAlphabet, c), "unexpected %q", c)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90)
}

func TestNormalizeInviteCode(t *testing.T) {
	assert.Equal(t, "ABC234", NormalizeInviteCode(" abc234 "))
}
