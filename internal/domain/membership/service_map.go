// internal/domain/membership/service_map.go
package membership

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServiceMap maps storefront product handles to the service categories
// memberships discount. Unmapped handles are not eligible.
type ServiceMap map[string]string

// DefaultServiceMap returns the built-in handle table
func DefaultServiceMap() ServiceMap {
	return ServiceMap{
		"home-massage-spa":     "massage",
		"couples-massage":      "massage",
		"deep-tissue-massage":  "massage",
		"home-deep-cleaning":   "cleaning",
		"home-cleaning":        "cleaning",
		"sofa-carpet-cleaning": "cleaning",
		"salon-at-home":        "salon",
		"manicure-pedicure":    "salon",
		"car-wash-at-home":     "car-wash",
		"pet-grooming":         "pet-grooming",
		"laundry-pickup":       "laundry",
		"ac-maintenance":       "maintenance",
		"handyman-services":    "maintenance",
	}
}

// Resolve returns the service id for a product handle
func (sm ServiceMap) Resolve(handle string) (string, bool) {
	serviceID, ok := sm[normalizeHandle(handle)]
	if !ok || serviceID == "" {
		return "", false
	}
	return serviceID, true
}

// serviceMapFile is the YAML layout: service id -> product handles
type serviceMapFile struct {
	Services map[string][]string `yaml:"services"`
}

// LoadServiceMap reads a YAML service map from path
func LoadServiceMap(path string) (ServiceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service map: %w", err)
	}
	return ParseServiceMap(data)
}

// ParseServiceMap decodes a YAML service map document
func ParseServiceMap(data []byte) (ServiceMap, error) {
	var file serviceMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse service map: %w", err)
	}

	sm := make(ServiceMap)
	for serviceID, handles := range file.Services {
		serviceID = strings.TrimSpace(serviceID)
		if serviceID == "" {
			return nil, fmt.Errorf("service map contains an empty service id")
		}
		for _, handle := range handles {
			key := normalizeHandle(handle)
			if existing, dup := sm[key]; dup && existing != serviceID {
				return nil, fmt.Errorf("handle %q mapped to both %q and %q", key, existing, serviceID)
			}
			sm[key] = serviceID
		}
	}

	return sm, nil
}

func normalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}
