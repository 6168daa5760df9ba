package browser

import (
	"reflect"
	"testing"

	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
)

// withValue sets the raw JSON value of a remote object regardless of the
// concrete byte-slice type cdproto uses for it.
func withValue(obj *runtime.RemoteObject, raw string) *runtime.RemoteObject {
	reflect.ValueOf(&obj.Value).Elem().SetBytes([]byte(raw))
	return obj
}

func TestConsoleText(t *testing.T) {
	tests := []struct {
		name string
		args []*runtime.RemoteObject
		want string
	}{
		{
			name: "single string is unquoted",
			args: []*runtime.RemoteObject{
				withValue(&runtime.RemoteObject{Type: runtime.TypeString}, `"Front Space Filter: slot=2"`),
			},
			want: "Front Space Filter: slot=2",
		},
		{
			name: "string and number",
			args: []*runtime.RemoteObject{
				withValue(&runtime.RemoteObject{Type: runtime.TypeString}, `"columnsCount="`),
				withValue(&runtime.RemoteObject{Type: runtime.TypeNumber}, `1`),
			},
			want: "columnsCount= 1",
		},
		{
			name: "object falls back to description",
			args: []*runtime.RemoteObject{
				{Type: runtime.TypeObject, Description: "Object"},
			},
			want: "Object",
		},
		{
			name: "unserializable number",
			args: []*runtime.RemoteObject{
				{Type: runtime.TypeNumber, UnserializableValue: "NaN"},
			},
			want: "NaN",
		},
		{
			name: "undefined",
			args: []*runtime.RemoteObject{
				{Type: runtime.TypeUndefined},
			},
			want: "undefined",
		},
		{
			name: "no args",
			args: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, consoleText(tt.args))
		})
	}
}
