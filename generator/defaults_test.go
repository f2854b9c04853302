package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/choi857/kinetic-simulator/template"
)

func TestParseDefault(t *testing.T) {
	objTpl, _ := template.Parse([]byte(`{"a": 1, "b": {"c": 2}}`))

	tests := []struct {
		name string
		tag  template.TypeTag
		lit  string
		tpl  *template.Node
		want string
	}{
		{"int", template.TypeInt, "42", nil, `42`},
		{"int refined", template.TypeAge, " 7 ", nil, `7`},
		{"int bad", template.TypeID, "4.5", nil, `"4.5"`},
		{"double", template.TypePrice, "9.99", nil, `9.99`},
		{"double whole", template.TypeDouble, "3", nil, `3.0`},
		{"double bad", template.TypeRate, "lots", nil, `"lots"`},
		{"double nan", template.TypeRate, "NaN", nil, `"NaN"`},
		{"bool true", template.TypeBoolean, "TRUE", nil, `true`},
		{"bool one", template.TypeBoolean, "1", nil, `true`},
		{"bool other", template.TypeBoolean, "yes", nil, `false`},
		{"array json", template.TypeArray, `[1, "x"]`, nil, `[1,"x"]`},
		{"array bad json", template.TypeArray, `[1,`, nil, `"[1,"`},
		{"array split", template.TypeArray, "a, b\n c,,", nil, `["a","b","c"]`},
		{"object json", template.TypeObject, `{"k": true}`, nil, `{"k":true}`},
		{"object fill", template.TypeObject, "v", objTpl, `{"a":"v","b":"v"}`},
		{"object on scalar template", template.TypeObject, "v", template.Int(1), `"v"`},
		{"editable", template.TypeTimestampEditable, "1700000000000", nil, `1700000000000`},
		{"editable bad", template.TypeTimestampEditable, "soon", nil, `"soon"`},
		{"date is text", template.TypeDate, "2024-01-01", nil, `"2024-01-01"`},
		{"string", template.TypeString, "hello", nil, `"hello"`},
	}

	g := newTestGenerator(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.parseDefault(tt.tag, tt.lit, "p", tt.tpl)
			assert.Equal(t, tt.want, got.Compact())
		})
	}
}
