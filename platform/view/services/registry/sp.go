/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"reflect"
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var (
	ServiceNotFound = errors.New("service not found")
	logger          = logging.MustGetLogger("view-sdk.registry")
)

// ServiceProvider is a type-indexed registry of services
type ServiceProvider struct {
	services   []interface{}
	serviceMap map[reflect.Type]interface{}
	lock       sync.Mutex
}

func New() *ServiceProvider {
	return &ServiceProvider{
		services:   []interface{}{},
		serviceMap: map[reflect.Type]interface{}{},
	}
}

// GetService returns the first registered service assignable to the type of v.
// v can be a reflect.Type, a pointer to an interface, or a pointer to a struct.
func (sp *ServiceProvider) GetService(v interface{}) (interface{}, error) {
	sp.lock.Lock()
	defer sp.lock.Unlock()

	var typ reflect.Type
	switch t := v.(type) {
	case reflect.Type:
		typ = t
	default:
		typ = reflect.TypeOf(v)
	}

	switch typ.Kind() {
	case reflect.Struct:
		// nothing to do here
	default:
		typ = typ.Elem()
	}

	service, ok := sp.serviceMap[typ]
	if ok {
		return service, nil
	}
	for _, s := range sp.services {
		st := reflect.TypeOf(s)
		if typ.Kind() == reflect.Interface && st.Implements(typ) ||
			typ.Kind() != reflect.Interface && st.Kind() == reflect.Ptr && typ.AssignableTo(st.Elem()) {
			sp.serviceMap[typ] = s
			return s, nil
		}
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("service [%s/%s] not found in [%s]", typ.PkgPath(), typ.Name(), sp.String())
	}
	return nil, errors.Wrapf(ServiceNotFound, "service [%s/%s]", typ.PkgPath(), typ.Name())
}

func (sp *ServiceProvider) RegisterService(service interface{}) error {
	if service == nil {
		return errors.New("cannot register nil service")
	}
	sp.lock.Lock()
	defer sp.lock.Unlock()

	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("register service [%s]", getIdentifier(service))
	}
	sp.services = append(sp.services, service)
	return nil
}

func (sp *ServiceProvider) String() string {
	res := "services ["
	for _, service := range sp.services {
		res += getIdentifier(service) + ", "
	}
	return res + "]"
}

func getIdentifier(v interface{}) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "/" + t.Name()
}
