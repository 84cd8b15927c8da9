/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package viperutil

import (
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hyperledger-labs/fsc-obligations/pkg/utils/errors"
	"github.com/spf13/viper"
)

// inlineListHook turns "[a, b, c]" into a string slice, for values set through environment variables
func inlineListHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t.Kind() != reflect.Slice {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return data, nil
	}
	items := strings.Split(raw[1:len(raw)-1], ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items, nil
}

// EnhancedExactUnmarshal decodes the subtree under key into output. Durations may be written
// as strings ("5s") and scalars are converted to the type of the target field.
func EnhancedExactUnmarshal(v *viper.Viper, key string, output interface{}) error {
	if reflect.TypeOf(output).Kind() != reflect.Ptr {
		return errors.Errorf("output for [%s] must be a pointer", key)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			inlineListHook,
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(v.Get(key))
}
