package gateways

// constructor builds a gateway of one kind.
type constructor func(staging bool, cfg Config) (Gateway, error)

var constructors = map[Kind]constructor{
	System:        NewSystem,
	SelfManaged:   NewSelfManaged,
	Templated:     NewTemplated,
	TLS:           NewTLS,
	Operator:      NewOperator,
	ServiceMesh:   NewServiceMesh,
	WASM:          NewWASM,
	Containerized: NewContainerized,
}

// Construct builds an uncreated gateway of kind. It returns ErrInvalidConfig
// when cfg lacks what the kind needs.
func Construct(kind Kind, staging bool, cfg Config) (Gateway, error) {
	newGateway, ok := constructors[kind]
	if !ok {
		return nil, invalidConfig(kind, "unknown gateway kind")
	}
	g, err := newGateway(staging, cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("constructed gateway", "kind", kind, "staging", staging)
	return g, nil
}
