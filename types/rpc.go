package types

// Request and response shapes of the node service. Field names follow
// the JSON-RPC parameter names; cramberry tags serve the gRPC transport.

// NewAccountResult carries a freshly generated key and its account.
type NewAccountResult struct {
	Key     string `json:"key" cramberry:"1"`
	Account string `json:"account" cramberry:"2"`
}

// CallFunctionParams are the parameters of call_function.
type CallFunctionParams struct {
	Address        string   `json:"address" cramberry:"1"`
	Name           string   `json:"name" cramberry:"2"`
	Function       string   `json:"function" cramberry:"3"`
	Args           []string `json:"args" cramberry:"4"`
	AccountAddress string   `json:"account_address" cramberry:"5"`
	Key            string   `json:"key" cramberry:"6"`
}

// CallFunctionResult lists entities created by call_function.
type CallFunctionResult struct {
	Resources  []string `json:"resources" cramberry:"1"`
	Components []string `json:"components" cramberry:"2"`
}

// CallMethodParams are the parameters of call_method.
type CallMethodParams struct {
	Address        string   `json:"address" cramberry:"1"`
	Method         string   `json:"method" cramberry:"2"`
	Args           []string `json:"args" cramberry:"3"`
	AccountAddress string   `json:"account_address" cramberry:"4"`
	Key            string   `json:"key" cramberry:"5"`
}

// GetBalanceParams are the parameters of get_balance.
type GetBalanceParams struct {
	Address string `json:"address" cramberry:"1"`
}

// Balances maps the hex form of a resource address to the amount held.
type Balances map[string]Decimal

// NodeStatus reports the current epoch and nonce.
type NodeStatus struct {
	Epoch uint64 `json:"epoch" cramberry:"1"`
	Nonce uint64 `json:"nonce" cramberry:"2"`
}
