/*
 * Copyright (c) 2017-2020 The lyra developers
 */

package service

import (
	"context"
	"fmt"
	"reflect"

	"github.com/lyrachain/lyra/rpc/api"
)

// IService is the lifecycle contract every registered service fulfils.
type IService interface {
	// APIs retrieves the list of RPC descriptors the service provides
	APIs() []api.API

	// Start is called after all services have been constructed to spawn
	// any goroutines required by the service.
	Start() error

	// Stop terminates all goroutines belonging to the service, blocking
	// until they are all terminated.
	Stop() error

	Status() error

	IsStarted() bool

	IsShutdown() bool

	Context() context.Context
}

// ServiceRegistry provides a useful pattern for managing services.
// It allows for ease of dependency management and ensures services
// dependent on others use the same references in memory.
type ServiceRegistry struct {
	services     map[reflect.Type]IService // map of types to services.
	serviceTypes []reflect.Type            // keep an ordered slice of registered service types.
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[reflect.Type]IService),
	}
}

func (s *ServiceRegistry) StartAll() error {
	for _, kind := range s.serviceTypes {
		err := s.services[kind].Start()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceRegistry) StopAll() error {
	result := ""
	for i := len(s.serviceTypes) - 1; i >= 0; i-- {
		kind := s.serviceTypes[i]
		service := s.services[kind]
		if err := service.Stop(); err != nil {
			result += fmt.Sprintf("(%v)", kind)
		}
	}
	if len(result) > 0 {
		return fmt.Errorf("%s", result)
	}
	return nil
}

func (s *ServiceRegistry) RegisterService(service IService) error {
	kind := reflect.TypeOf(service)
	if _, exists := s.services[kind]; exists {
		return fmt.Errorf("service already exists: %v", kind)
	}
	s.services[kind] = service
	s.serviceTypes = append(s.serviceTypes, kind)
	return nil
}

// Services returns the registered services in registration order.
func (s *ServiceRegistry) Services() []IService {
	services := make([]IService, 0, len(s.serviceTypes))
	for _, kind := range s.serviceTypes {
		services = append(services, s.services[kind])
	}
	return services
}

func (s *ServiceRegistry) FetchService(service interface{}) error {
	if reflect.TypeOf(service).Kind() != reflect.Ptr {
		return fmt.Errorf("input must be of pointer type, received value type instead: %T", service)
	}
	element := reflect.ValueOf(service).Elem()
	if running, ok := s.services[element.Type()]; ok {
		element.Set(reflect.ValueOf(running))
		return nil
	}
	return fmt.Errorf("unknown service: %T", service)
}
