// Package gumball implements a gumball machine blueprint. It shows a
// component that owns vaults, sells a resource it minted for XRD and
// returns change.
//
// Functions:
//
//	new(price)            instantiate a machine holding 100 gumballs
//
// Methods:
//
//	get_price()           the price of one gumball in XRD
//	buy_gumball(payment)  payment is "amount,resource"; returns (gumball, change)
//	status()              the machine state
package gumball

import (
	"fmt"

	"github.com/blockberries/ledgerd/engine"
	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

// Name is the blueprint name.
const Name = "GumballMachine"

// Supply is the number of gumballs a new machine holds.
var Supply = types.NewDecimal(100)

// Code is package code exporting the blueprint.
var Code = engine.Manifest(Name)

// Blueprint returns the gumball machine blueprint.
func Blueprint() *engine.Blueprint {
	return &engine.Blueprint{
		Name: Name,
		Functions: map[string]engine.Function{
			"new": instantiate,
		},
		Methods: map[string]engine.Method{
			"get_price":   getPrice,
			"buy_gumball": buyGumball,
			"status":      status,
		},
	}
}

func state(gumballs, collected types.Vid, price types.Decimal) sbor.Value {
	return sbor.Struct{Fields: sbor.NamedFields{
		{Name: "gumballs", Value: sbor.VidValue(gumballs)},
		{Name: "collected_xrd", Value: sbor.VidValue(collected)},
		{Name: "price", Value: sbor.DecimalValue(price)},
	}}
}

func instantiate(rt *engine.Runtime, args engine.Args) (sbor.Value, error) {
	price, err := args.Decimal(0)
	if err != nil {
		return nil, err
	}
	if price.IsNegative() || price.IsZero() {
		return nil, fmt.Errorf("%w: price must be positive", engine.ErrInvalidArgument)
	}
	resource, bucket, err := rt.NewResource("GUM", "Gumballs", Supply)
	if err != nil {
		return nil, err
	}
	gumballs, err := rt.NewVault(resource)
	if err != nil {
		return nil, err
	}
	if err := rt.Deposit(gumballs, bucket); err != nil {
		return nil, err
	}
	collected, err := rt.NewVault(types.XRDResourceDef)
	if err != nil {
		return nil, err
	}
	addr, err := rt.NewComponent(Name, state(gumballs, collected, price))
	if err != nil {
		return nil, err
	}
	return sbor.AddressValue(addr), nil
}

func getPrice(_ *engine.Runtime, self *engine.Self, _ engine.Args) (sbor.Value, error) {
	price, err := self.Decimal("price")
	if err != nil {
		return nil, err
	}
	return sbor.DecimalValue(price), nil
}

func buyGumball(rt *engine.Runtime, self *engine.Self, args engine.Args) (sbor.Value, error) {
	payment, err := args.Bucket(0)
	if err != nil {
		return nil, err
	}
	price, err := self.Decimal("price")
	if err != nil {
		return nil, err
	}
	gumballs, err := self.Vid("gumballs")
	if err != nil {
		return nil, err
	}
	collected, err := self.Vid("collected_xrd")
	if err != nil {
		return nil, err
	}

	fee, err := rt.Split(payment, price)
	if err != nil {
		return nil, err
	}
	if err := rt.Deposit(collected, fee); err != nil {
		return nil, err
	}
	gumball, err := rt.Withdraw(gumballs, types.NewDecimal(1))
	if err != nil {
		return nil, err
	}
	rt.Log("sold a gumball for %s", price)
	return sbor.Tuple{Elems: []sbor.Value{sbor.BidValue(gumball), sbor.BidValue(payment)}}, nil
}

func status(_ *engine.Runtime, self *engine.Self, _ engine.Args) (sbor.Value, error) {
	return self.State, nil
}
