package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/autopilot/internal/apperror"
	"github.com/fd1az/autopilot/internal/logger"
)

type fakeGasClient struct {
	price *big.Int
	err   error
	calls int
}

func (f *fakeGasClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.calls++
	return f.price, f.err
}

func (f *fakeGasClient) Close() {}

func newTestOracle(t *testing.T, client gasPriceClient, maxGwei int64) *GasOracle {
	t.Helper()
	g, err := NewGasOracle(DefaultGasOracleConfig("http://unused", maxGwei), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	g.setClient(client)
	return g
}

func TestGasOracle_CachesPrice(t *testing.T) {
	client := &fakeGasClient{price: big.NewInt(25e9)}
	g := newTestOracle(t, client, 500)

	for range 3 {
		price, err := g.GetGasPrice(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 25.0, price.Gwei(), 1e-9)
	}
	assert.Equal(t, 1, client.calls)
}

func TestGasOracle_ClampsToMax(t *testing.T) {
	g := newTestOracle(t, &fakeGasClient{price: big.NewInt(900e9)}, 500)

	price, err := g.GetGasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500e9), price.Wei)

	cost, err := price.Cost(21_000)
	require.NoError(t, err)
	assert.Equal(t, "10500000000000000", cost.Wei().String())
}

func TestGasOracle_Errors(t *testing.T) {
	g := newTestOracle(t, &fakeGasClient{err: errors.New("boom")}, 0)

	_, err := g.GetGasPrice(context.Background())
	assert.Equal(t, apperror.CodeEthereumRPCError, apperror.GetCode(err))

	g.setClient(nil)
	_, err = g.GetGasPrice(context.Background())
	assert.Equal(t, apperror.CodeEthereumConnectionFailed, apperror.GetCode(err))
}
