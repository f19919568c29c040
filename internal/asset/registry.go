package asset

import (
	"fmt"
	"sync"
)

// Token is display metadata for a token address.
// The symbol is NOT identity - the address is.
type Token struct {
	Address  TokenAddress
	Symbol   string
	Decimals uint8
}

// Format renders an amount of this token (e.g., "1.5 WETH").
func (t Token) Format(a TokenAmount) string {
	return fmt.Sprintf("%s %s", a.ToDecimal(t.Decimals).String(), t.Symbol)
}

// Registry is a thread-safe registry of known tokens, used to render
// amounts and pairs in reports.
type Registry struct {
	byAddress map[TokenAddress]Token
	mu        sync.RWMutex
}

// NewRegistry creates a new empty token registry.
func NewRegistry() *Registry {
	return &Registry{byAddress: make(map[TokenAddress]Token)}
}

// Register adds a token. Panics if the address is already registered.
func (r *Registry) Register(t Token) {
	if t.Symbol == "" {
		panic("asset: empty symbol")
	}
	if t.Decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAddress[t.Address]; exists {
		panic(fmt.Sprintf("asset: %s already registered", t.Address.Hex()))
	}
	r.byAddress[t.Address] = t
}

// Get retrieves a token by address.
func (r *Registry) Get(addr TokenAddress) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byAddress[addr]
	return t, ok
}

// Symbol returns the registered symbol or a shortened address.
func (r *Registry) Symbol(addr TokenAddress) string {
	if t, ok := r.Get(addr); ok {
		return t.Symbol
	}
	hex := addr.Hex()
	return hex[:6] + ".." + hex[len(hex)-4:]
}

// PairString renders a directed pair with symbols (e.g., "WETH->USDC").
func (r *Registry) PairString(p DirectedTokenPair) string {
	return r.Symbol(p.Sell()) + "->" + r.Symbol(p.Buy())
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}
