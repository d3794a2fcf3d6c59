package health

// Wallet holds a non-negative currency balance.
type Wallet struct {
	balance   int
	onChanged []func(balance, delta int)
}

// NewWallet starts with the given balance, floored at zero.
func NewWallet(balance int) *Wallet {
	return &Wallet{balance: max(balance, 0)}
}

func (w *Wallet) Balance() int { return w.balance }

// OnCurrencyChanged registers a callback receiving the new balance and delta.
func (w *Wallet) OnCurrencyChanged(fn func(balance, delta int)) {
	w.onChanged = append(w.onChanged, fn)
}

// AddCurrency adds a positive amount and returns the change.
func (w *Wallet) AddCurrency(amount int) int {
	if amount <= 0 {
		return 0
	}
	return w.set(w.balance + amount)
}

// SpendCurrency removes amount when the balance covers it.
func (w *Wallet) SpendCurrency(amount int) bool {
	if amount <= 0 || w.balance < amount {
		return false
	}
	w.set(w.balance - amount)
	return true
}

func (w *Wallet) set(v int) int {
	prev := w.balance
	w.balance = max(v, 0)
	delta := w.balance - prev
	if delta != 0 {
		for _, fn := range w.onChanged {
			fn(w.balance, delta)
		}
	}
	return delta
}
