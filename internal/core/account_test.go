package core

import "testing"

func TestNewAccountSeedsStartingBalance(t *testing.T) {
	a := NewAccount(10000, 0.0002, 0.0004)
	if a.Balance != 10000 || a.StartingBalance != 10000 {
		t.Fatalf("expected balance and starting balance to both seed at 10000, got %+v", a)
	}
}

func TestFeeForUsesMakerOrTakerRate(t *testing.T) {
	a := NewAccount(10000, 0.0002, 0.0004)
	maker := a.FeeFor(100, 2, true)
	taker := a.FeeFor(100, 2, false)
	if maker != 100*2*0.0002 {
		t.Fatalf("unexpected maker fee: %v", maker)
	}
	if taker != 100*2*0.0004 {
		t.Fatalf("unexpected taker fee: %v", taker)
	}
}

func TestApplyFillBooksPnLAndDeductsFee(t *testing.T) {
	a := NewAccount(10000, 0.0002, 0.0004)
	a.ApplyFill(50, 2)
	if a.Balance != 10048 {
		t.Fatalf("expected balance 10048 after +50 pnl -2 fee, got %v", a.Balance)
	}
	if a.TotalFees != 2 {
		t.Fatalf("expected accumulated fees of 2, got %v", a.TotalFees)
	}
}

func TestApplyFundingDebitsBalanceAndAccumulates(t *testing.T) {
	a := NewAccount(10000, 0.0002, 0.0004)
	a.ApplyFunding(1.5)
	a.ApplyFunding(-0.5)
	if a.Balance != 10000-1.5+0.5 {
		t.Fatalf("unexpected balance after funding: %v", a.Balance)
	}
	if a.TotalFunding != 1.0 {
		t.Fatalf("expected accumulated funding of 1.0, got %v", a.TotalFunding)
	}
}
