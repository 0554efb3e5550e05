package engine

import (
	"fmt"

	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

// AccountBlueprint is the name of the system account blueprint.
const AccountBlueprint = "Account"

// AccountGrant is the amount of XRD every new account starts with.
var AccountGrant = types.NewDecimal(1_000_000)

// Account state:
//
//	Struct { key: Address, vaults: Mid }
//
// where vaults maps a resource address to the Vid of the account's
// vault for that resource.
type accountState struct {
	key    types.Address
	vaults types.Mid
}

func (a accountState) value() sbor.Value {
	return sbor.Struct{Fields: sbor.NamedFields{
		{Name: "key", Value: sbor.AddressValue(a.key)},
		{Name: "vaults", Value: sbor.MidValue(a.vaults)},
	}}
}

func decodeAccount(v sbor.Value) (accountState, error) {
	self := &Self{State: v}
	keyField, err := self.Field("key")
	if err != nil {
		return accountState{}, err
	}
	key, err := sbor.AsAddress(keyField)
	if err != nil {
		return accountState{}, fmt.Errorf("%w: %v", ErrBadState, err)
	}
	vaults, err := self.Mid("vaults")
	if err != nil {
		return accountState{}, err
	}
	return accountState{key: key, vaults: vaults}, nil
}

func accountBlueprint() *Blueprint {
	return &Blueprint{
		Name: AccountBlueprint,
		Functions: map[string]Function{
			"new": accountNew,
		},
		Methods: map[string]Method{
			"balance":  accountBalance,
			"withdraw": accountWithdraw,
		},
	}
}

// accountNew(key) creates an account controlled by key and funds it.
func accountNew(rt *Runtime, args Args) (sbor.Value, error) {
	key, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	if !key.IsPublicKey() {
		return nil, fmt.Errorf("%w: %s is not a public key", ErrInvalidArgument, key)
	}
	st := accountState{key: key, vaults: rt.NewLazyMap()}
	vault, err := accountVault(rt, st, types.XRDResourceDef, true)
	if err != nil {
		return nil, err
	}
	grant, err := rt.mint(types.XRDResourceDef, AccountGrant)
	if err != nil {
		return nil, err
	}
	if err := rt.Deposit(vault, grant); err != nil {
		return nil, err
	}
	addr, err := rt.NewComponent(AccountBlueprint, st.value())
	if err != nil {
		return nil, err
	}
	return sbor.AddressValue(addr), nil
}

// balance(resource) returns the amount of resource held.
func accountBalance(rt *Runtime, self *Self, args Args) (sbor.Value, error) {
	resource, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	st, err := decodeAccount(self.State)
	if err != nil {
		return nil, err
	}
	vault, err := accountVault(rt, st, resource, false)
	if err != nil {
		return nil, err
	}
	if vault == (types.Vid{}) {
		return sbor.DecimalValue(types.ZeroDecimal), nil
	}
	amount, err := rt.VaultAmount(vault)
	if err != nil {
		return nil, err
	}
	return sbor.DecimalValue(amount), nil
}

// withdraw(amount, resource) moves amount into a bucket on the worktop.
func accountWithdraw(rt *Runtime, self *Self, args Args) (sbor.Value, error) {
	amount, err := args.Decimal(0)
	if err != nil {
		return nil, err
	}
	resource, err := args.Address(1)
	if err != nil {
		return nil, err
	}
	id, err := withdrawFromAccount(rt, self.Address, amount, resource)
	if err != nil {
		return nil, err
	}
	return sbor.BidValue(id), nil
}

// accountVault looks up the account's vault for resource. When create
// is set a missing vault is created; otherwise the zero Vid is
// returned.
func accountVault(rt *Runtime, st accountState, resource types.Address, create bool) (types.Vid, error) {
	key := sbor.AddressValue(resource)
	v, ok, err := rt.LazyMapGet(st.vaults, key)
	if err != nil {
		return types.Vid{}, err
	}
	if ok {
		id, err := sbor.AsVid(v)
		if err != nil {
			return types.Vid{}, fmt.Errorf("%w: %v", ErrBadState, err)
		}
		return id, nil
	}
	if !create {
		return types.Vid{}, nil
	}
	id, err := rt.NewVault(resource)
	if err != nil {
		return types.Vid{}, err
	}
	if err := rt.LazyMapPut(st.vaults, key, sbor.VidValue(id)); err != nil {
		return types.Vid{}, err
	}
	return id, nil
}

func loadAccount(rt *Runtime, addr types.Address) (accountState, error) {
	c, ok, err := rt.track.component(addr)
	if err != nil {
		return accountState{}, err
	}
	if !ok {
		return accountState{}, fmt.Errorf("%w: %s", ErrComponentNotFound, addr)
	}
	if c.Package != types.SystemPackage || c.Blueprint != AccountBlueprint {
		return accountState{}, fmt.Errorf("%w: %s", ErrNotAccount, addr)
	}
	v, err := sbor.Decode(c.State)
	if err != nil {
		return accountState{}, fmt.Errorf("%w: %v", ErrBadState, err)
	}
	return decodeAccount(v)
}

func withdrawFromAccount(rt *Runtime, account types.Address, amount types.Decimal, resource types.Address) (types.Bid, error) {
	st, err := loadAccount(rt, account)
	if err != nil {
		return 0, err
	}
	if !rt.IsSigner(st.key) {
		return 0, fmt.Errorf("%w: %s", ErrUnauthorized, account)
	}
	vault, err := accountVault(rt, st, resource, false)
	if err != nil {
		return 0, err
	}
	if vault == (types.Vid{}) {
		return 0, fmt.Errorf("%w: account holds no %s", ErrInsufficientBalance, resource)
	}
	return rt.Withdraw(vault, amount)
}

func depositToAccount(rt *Runtime, account types.Address, id types.Bid) error {
	st, err := loadAccount(rt, account)
	if err != nil {
		return err
	}
	resource, err := rt.BucketResource(id)
	if err != nil {
		return err
	}
	vault, err := accountVault(rt, st, resource, true)
	if err != nil {
		return err
	}
	return rt.Deposit(vault, id)
}

// mint creates amount of a resource out of thin air. Only the system
// package uses it.
func (rt *Runtime) mint(resource types.Address, amount types.Decimal) (types.Bid, error) {
	r, ok, err := rt.track.resource(resource)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
	}
	supply, err := r.Supply.Add(amount)
	if err != nil {
		return 0, err
	}
	r.Supply = supply
	rt.track.putResource(resource, r)
	return rt.newBucket(resource, amount), nil
}
