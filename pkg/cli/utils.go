package cli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/keybase/dbus"
	"github.com/keybase/go-keychain/secretservice"
)

const (
	service    = "wms-backend"
	collection = secretservice.DefaultCollection
	prefix     = "keychain:"
)

type lookupFunc func(element string) (string, error)

// FillKeychainValues replaces every string field of args, embedded structs
// included, that has the form keychain:<element> with the secret stored for
// <element> in the desktop secret service.
func FillKeychainValues[T any](args *T) error {
	var k *keychain
	return fillValues(reflect.ValueOf(args).Elem(), func(element string) (string, error) {
		if k == nil {
			var err error
			k, err = openKeychain()
			if err != nil {
				return "", fmt.Errorf("init secret service: %v", err)
			}
		}
		return k.get(element)
	})
}

func fillValues(v reflect.Value, lookup lookupFunc) error {
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.Struct {
			if err := fillValues(f, lookup); err != nil {
				return err
			}
			continue
		}
		if f.Kind() != reflect.String || !strings.HasPrefix(f.String(), prefix) {
			continue
		}
		if !f.CanSet() {
			return fmt.Errorf("set value for field %s", v.Type().Field(i).Name)
		}
		secret, err := lookup(strings.TrimPrefix(f.String(), prefix))
		if err != nil {
			return err
		}
		f.SetString(secret)
	}
	return nil
}

type keychain struct {
	svc     *secretservice.SecretService
	session *secretservice.Session
}

func openKeychain() (*keychain, error) {
	svc, err := secretservice.NewService()
	if err != nil {
		return nil, fmt.Errorf("create keychain service: %v", err)
	}
	if err := svc.Unlock([]dbus.ObjectPath{collection}); err != nil {
		return nil, fmt.Errorf("unlock keychain service: %v", err)
	}
	session, err := svc.OpenSession(secretservice.AuthenticationDHAES)
	if err != nil {
		return nil, fmt.Errorf("open session: %v", err)
	}
	if session == nil {
		return nil, fmt.Errorf("no session")
	}
	return &keychain{svc: svc, session: session}, nil
}

func (k *keychain) get(element string) (string, error) {
	items, err := k.svc.SearchCollection(collection, secretservice.Attributes{
		"service": service,
		"element": element,
	})
	if err != nil {
		return "", fmt.Errorf("search keychain element: %v", err)
	}
	if len(items) < 1 {
		return "", fmt.Errorf("keychain element %s not found", element)
	}
	if len(items) > 1 {
		return "", fmt.Errorf("found more than one keychain elements for %s", element)
	}
	secretValue, err := k.svc.GetSecret(items[0], *k.session)
	if err != nil {
		return "", fmt.Errorf("get value from keychain: %v", err)
	}
	return string(secretValue), nil
}
