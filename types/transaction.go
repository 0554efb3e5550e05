package types

import "fmt"

// Instruction is one step of a transaction manifest.
type Instruction interface {
	isInstruction()
	String() string
}

// CallFunction invokes a blueprint function of a published package.
// Account, when set, is made available to the callee for withdrawals.
type CallFunction struct {
	Package   Address
	Blueprint string
	Function  string
	Args      []string
	Account   *Address
}

// CallMethod invokes a method on an instantiated component.
type CallMethod struct {
	Component Address
	Method    string
	Args      []string
	Account   *Address
}

// DropAllBucketRefs releases every bucket reference held by the
// transaction worktop.
type DropAllBucketRefs struct{}

// DepositAllBuckets moves every bucket left on the worktop into
// Account.
type DepositAllBuckets struct {
	Account Address
}

// PublishPackage publishes code and creates a package entity.
type PublishPackage struct {
	Code []byte
}

func (CallFunction) isInstruction()      {}
func (CallMethod) isInstruction()        {}
func (DropAllBucketRefs) isInstruction() {}
func (DepositAllBuckets) isInstruction() {}
func (PublishPackage) isInstruction()    {}

func (i CallFunction) String() string {
	return fmt.Sprintf("CALL_FUNCTION %s %s::%s %q", i.Package, i.Blueprint, i.Function, i.Args)
}

func (i CallMethod) String() string {
	return fmt.Sprintf("CALL_METHOD %s %s %q", i.Component, i.Method, i.Args)
}

func (DropAllBucketRefs) String() string { return "DROP_ALL_BUCKET_REFS" }

func (i DepositAllBuckets) String() string { return "DEPOSIT_ALL_BUCKETS " + i.Account.String() }

func (i PublishPackage) String() string { return fmt.Sprintf("PUBLISH_PACKAGE (%d bytes)", len(i.Code)) }

// Transaction is a built, signed manifest stamped with a nonce.
type Transaction struct {
	Nonce        uint64
	Instructions []Instruction
	Signers      []Address
}

// HasSigner reports whether key signed the transaction.
func (t *Transaction) HasSigner(key Address) bool {
	for _, s := range t.Signers {
		if s == key {
			return true
		}
	}
	return false
}

// CallResult is the outcome of one instruction. Output is the encoded
// return value, nil when the instruction returns nothing.
type CallResult struct {
	Output []byte
	Err    error
}

// Receipt reports what a transaction did.
type Receipt struct {
	TxHash      H256
	NewEntities []Address
	Results     []CallResult
	Logs        []string
}

// FirstFailure returns the index and error of the first failed
// instruction, or -1 and nil when every instruction succeeded.
func (r *Receipt) FirstFailure() (int, error) {
	for i, res := range r.Results {
		if res.Err != nil {
			return i, res.Err
		}
	}
	return -1, nil
}

// Partition splits new entities by kind, preserving creation order.
func (r *Receipt) Partition() (packages, components, resources []Address) {
	for _, a := range r.NewEntities {
		switch a.Kind() {
		case KindPackage:
			packages = append(packages, a)
		case KindComponent:
			components = append(components, a)
		case KindResourceDef:
			resources = append(resources, a)
		}
	}
	return packages, components, resources
}
