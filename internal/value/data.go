package value

// Data — ячейка данных: значение, ошибка или значение с предупреждением.
//
//   - значение без ошибки — успех
//   - ошибка без значения — отказ
//   - значение и ошибка — успех с предупреждением
//
// Ячейка без значения и без ошибки невозможна.
type Data struct {
	name  string
	value Value
	err   Exception
}

// NewData создаёт ячейку. Возвращает ErrEmptyData, если v и exc оба nil.
func NewData(name string, v Value, exc Exception) (*Data, error) {
	if v == nil && exc == nil {
		return nil, ErrEmptyData
	}
	if name == "" {
		name = "Data"
	}
	return &Data{name: name, value: v, err: exc}, nil
}

func mustData(name string, v Value, exc Exception) *Data {
	d, err := NewData(name, v, exc)
	if err != nil {
		panic(err)
	}
	return d
}

// Success создаёт успешную ячейку. Паникует, если v == nil.
func Success(name string, v Value) *Data { return mustData(name, v, nil) }

// Failure создаёт ячейку-отказ. Паникует, если exc == nil.
func Failure(name string, exc Exception) *Data { return mustData(name, nil, exc) }

// Warning создаёт успешную ячейку с предупреждением.
func Warning(name string, v Value, exc Exception) *Data {
	if v == nil || exc == nil {
		panic("value: warning cell requires both a value and an error")
	}
	return mustData(name, v, exc)
}

// Name реализует Object.
func (d *Data) Name() string { return d.name }

// Value возвращает значение (может быть nil).
func (d *Data) Value() Value { return d.value }

// Err возвращает исключение (может быть nil).
func (d *Data) Err() Exception { return d.err }

// Present сообщает, есть ли значение.
func (d *Data) Present() bool { return d != nil && d.value != nil }

// IsSuccess — значение без ошибки.
func (d *Data) IsSuccess() bool { return d.Present() && d.err == nil }

// IsFailure — ошибка без значения.
func (d *Data) IsFailure() bool { return !d.Present() }

// HasWarning — значение с ошибкой.
func (d *Data) HasWarning() bool { return d.Present() && d.err != nil }

// Type возвращает тип значения или ExceptionType для отказа.
func (d *Data) Type() TypeInfo {
	if d.value == nil {
		return ExceptionType()
	}
	return d.value.Type()
}

// WithName возвращает копию ячейки с другим именем.
func (d *Data) WithName(name string) *Data {
	return &Data{name: name, value: d.value, err: d.err}
}

// String форматирует ячейку: значение или сообщение ошибки.
func (d *Data) String() string {
	if d.value == nil {
		return d.name + ": " + d.err.Message()
	}
	return d.name + "[" + d.Type().String() + "]: " + d.value.String()
}
