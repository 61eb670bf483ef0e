package common

type Module string

const (
	ModuleTokenSync Module = "tokensync"
)

func (m Module) String() string {
	return string(m)
}
