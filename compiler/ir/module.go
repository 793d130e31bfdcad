package ir

type Module struct {
	name string
	ctx  *Context

	globals []*GlobalVariable
	strings []*GlobalString
	funcs   []*Function
	main    *Function
}

// NewModule creates an empty module owning a fresh context.
func NewModule(name string) *Module {
	return &Module{
		name: name,
		ctx:  NewContext(),
	}
}

func (m *Module) Name() string      { return m.name }
func (m *Module) Context() *Context { return m.ctx }

func (m *Module) Globals() []*GlobalVariable { return m.globals }
func (m *Module) Strings() []*GlobalString   { return m.strings }
func (m *Module) Functions() []*Function     { return m.funcs }
func (m *Module) Main() *Function            { return m.main }

func (m *Module) AddGlobal(g *GlobalVariable) { m.globals = append(m.globals, g) }
func (m *Module) AddString(s *GlobalString)   { m.strings = append(m.strings, s) }
func (m *Module) AddFunction(f *Function)     { m.funcs = append(m.funcs, f) }

func (m *Module) SetMain(f *Function) { m.main = f }
