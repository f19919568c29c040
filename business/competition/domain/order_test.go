package domain

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderUid(t *testing.T) {
	uid := NewOrderUid(common.HexToHash("0x01"), owner, 1_900_000_000)

	assert.Equal(t, owner, uid.Owner())
	assert.Equal(t, uint32(1_900_000_000), uid.ValidTo())
	assert.Len(t, uid.String(), 2+2*OrderUidLen)

	parsed, err := ParseOrderUid(uid.String())
	require.NoError(t, err)
	assert.Equal(t, uid, parsed)

	_, err = ParseOrderUid("0x1234")
	assert.ErrorIs(t, err, ErrInvalidOrderUid)
	_, err = ParseOrderUid("not hex")
	assert.ErrorIs(t, err, ErrInvalidOrderUid)
}

func TestOrderUid_JSON(t *testing.T) {
	type wrapper struct {
		UID  OrderUid `json:"uid"`
		Side Side     `json:"side"`
	}
	in := wrapper{UID: uidN(5), Side: SideBuy}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"side":"buy"`)

	var out wrapper
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"side":"hold"}`), &out))
}

func TestSolution_Accessors(t *testing.T) {
	auction := newTestAuction(t, nil)
	s := NewSolution(3, solverA, []Trade{
		trade(orderDaiWeth, "2000000000000000000000", "1010000000000000000"),
		trade(orderWethUsdc, "1000000000000000000", "1010000000"),
	}, nil, ScoreFromWei(1))

	assert.True(t, s.Trades(orderWethUsdc.UID))
	assert.False(t, s.Trades(orderBuyWeth.UID))
	assert.Equal(t, 2, s.TradeCount())
	assert.Equal(t, []OrderUid{uidN(1), uidN(2)}, s.OrderUIDs())
	assert.Len(t, s.TouchedTokens(auction), 3)

	other := NewSolution(4, solverB, []Trade{trade(orderWethUsdc, "1", "1")}, nil, ZeroScore)
	disjoint := NewSolution(5, solverB, []Trade{trade(orderBuyWeth, "1", "1")}, nil, ZeroScore)
	assert.True(t, Overlaps(s, other))
	assert.True(t, Overlaps(other, s))
	assert.False(t, Overlaps(s, disjoint))
}
