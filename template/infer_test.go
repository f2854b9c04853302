package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitName(t *testing.T) {
	tests := map[string][]string{
		"userID":       {"user", "id"},
		"user_id":      {"user", "id"},
		"HTTPServer":   {"http", "server"},
		"createdAt":    {"created", "at"},
		"ipv4":         {"ipv", "4"},
		"vx":           {"vx"},
		"is-active":    {"is", "active"},
		"sensor2Value": {"sensor", "2", "value"},
	}
	for in, want := range tests {
		assert.Equal(t, want, splitName(in), in)
	}
}

func TestInferFromName(t *testing.T) {
	tests := []struct {
		name string
		want TypeTag
		ok   bool
	}{
		{"count_int", TypeInt, true},
		{"ratio_double", TypeDouble, true},
		{"flag_bool", TypeBoolean, true},
		{"contactEmail", TypeEmail, true},
		{"mobile", TypePhone, true},
		{"requestGuid", TypeUUID, true},
		{"avatarUrl", TypeURL, true},
		{"client_ip", TypeIP, true},
		{"shipping", "", false},
		{"bgColour", TypeColor, true},
		{"lat", TypeLatitude, true},
		{"lng", TypeLongitude, true},
		{"cpuTemp", TypeTemperature, true},
		{"birthDate", TypeDate, true},
		{"updateTime", TypeDate, true},
		{"age", TypeAge, true},
		{"port", TypePort, true},
		{"id", TypeID, true},
		{"orderIds", TypeID, true},
		{"userName", TypeName, true},
		{"retryCount", TypeInt, true},
		{"type", TypeInt, true},
		{"unitPrice", TypePrice, true},
		{"successRate", TypeRate, true},
		{"score", TypeScore, true},
		{"value", TypeDouble, true},
		{"vx", TypeDouble, true},
		{"a", TypeDouble, true},
		{"data", "", false},
		{"isActive", TypeBoolean, true},
		{"hasChildren", TypeBoolean, true},
		{"enabled", TypeBoolean, true},
		{"address", "", false},

		{"productname", TypeName, true},
		{"itemprice", TypePrice, true},
		{"userid", TypeID, true},
		{"heartrate", TypeRate, true},
		{"ageyears", TypeAge, true},
		{"createdtimestamp", TypeDate, true},
		{"itemcount", TypeInt, true},
		{"sessionguid", TypeUUID, true},
		{"message", "", false},
		{"valid", "", false},
		{"android", "", false},
		{"report", "", false},
		{"today", "", false},
		{"guide", "", false},
		{"generated", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := inferFromName(tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestInferTypes(t *testing.T) {
	tpl, err := Parse([]byte(`{
		"id": 0, "age": 0, "price": 0.0,
		"latitude": 0.0,
		"title": "x", "weight": 1.5, "qty_int": "7", "flag": false, "note": null,
		"items": [{"sku": "a", "tags": ["t"]}, {"ignored": 1}],
		"meta": {}
	}`))
	require.NoError(t, err)

	types := InferTypes(tpl)

	want := map[string]TypeTag{
		"":                 TypeObject,
		"id":               TypeID,
		"age":              TypeAge,
		"price":            TypePrice,
		"latitude":         TypeLatitude,
		"title":            TypeString,
		"weight":           TypeDouble,
		"qty_int":          TypeInt,
		"flag":             TypeBoolean,
		"note":             TypeString,
		"items":            TypeArray,
		"items[0]":         TypeObject,
		"items[0].sku":     TypeString,
		"items[0].tags":    TypeArray,
		"items[0].tags[0]": TypeString,
		"meta":             TypeObject,
	}
	assert.Equal(t, want, types)
}

func TestInferTypes_ArrayElementsUseParentName(t *testing.T) {
	tpl, err := Parse([]byte(`{"prices": [1], "emails": ["x"], "rows": [[1]]}`))
	require.NoError(t, err)

	types := InferTypes(tpl)
	assert.Equal(t, TypePrice, types["prices[0]"])
	assert.Equal(t, TypeEmail, types["emails[0]"])
	assert.Equal(t, TypeArray, types["rows[0]"])
	assert.Equal(t, TypeInt, types["rows[0][0]"])
}

func TestInferTypes_ScalarRoot(t *testing.T) {
	tpl, err := Parse([]byte(`3.5`))
	require.NoError(t, err)
	assert.Equal(t, map[string]TypeTag{"": TypeDouble}, InferTypes(tpl))
}
