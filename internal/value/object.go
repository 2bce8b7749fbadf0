package value

// Object — всё, что имеет имя и тип в движке.
// Идентичность объектов определяется именем.
type Object interface {
	Name() string
	Type() TypeInfo
}

// Value — значение, которое может лежать в ячейке данных.
type Value interface {
	Type() TypeInfo
	String() string
}

// Callable — значение, которое можно вызвать (узел).
// Реализуется пакетом node; здесь нужен для дескриптора NodeType.
type Callable interface {
	Value
	Inputs() []Port
	Outputs() []Port
}

// Port — объявленный вход или выход узла.
type Port struct {
	Name string
	Type TypeInfo
}

// Ports создаёт порты типа Any с заданными именами.
func Ports(names ...string) []Port {
	ports := make([]Port, len(names))
	for i, name := range names {
		ports[i] = Port{Name: name, Type: AnyType()}
	}
	return ports
}

// PortNames возвращает имена портов в порядке объявления.
func PortNames(ports []Port) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return names
}

// SameObject сообщает, являются ли объекты одной сущностью (по имени).
func SameObject(a, b Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name() == b.Name()
}
