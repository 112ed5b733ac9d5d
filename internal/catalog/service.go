package catalog

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type CatalogService struct {
	Courses    *Store[Course]
	Services   *Store[Service]
	Mettads    *Store[Mettad]
	Checklists *Store[Checklist]
}

func NewService(dbConn *gorm.DB) *CatalogService {
	return &CatalogService{
		Courses:    NewStore[Course](dbConn, "course", "name"),
		Services:   NewStore[Service](dbConn, "service", "name"),
		Mettads:    NewStore[Mettad](dbConn, "mettad", "name"),
		Checklists: NewStore[Checklist](dbConn, "checklist", "title"),
	}
}

type Lookup struct {
	CourseID  *uint
	ServiceID *uint
	Warnings  []string
}

// Resolve maps free-text course and service names onto reference ids.
// Names that match nothing leave the id nil and add a warning.
func (catalogService *CatalogService) Resolve(ctx context.Context, courseName, serviceName string) (Lookup, error) {
	var lookup Lookup

	courseName = strings.TrimSpace(courseName)
	serviceName = strings.TrimSpace(serviceName)

	courseID, err := catalogService.Courses.IDByName(ctx, courseName)
	if err != nil {
		return lookup, err
	}

	if courseID == nil && courseName != "" {
		lookup.Warnings = append(lookup.Warnings, fmt.Sprintf("course %q not found", courseName))
	}

	serviceID, err := catalogService.Services.IDByName(ctx, serviceName)
	if err != nil {
		return lookup, err
	}

	if serviceID == nil && serviceName != "" {
		lookup.Warnings = append(lookup.Warnings, fmt.Sprintf("service %q not found", serviceName))
	}

	lookup.CourseID = courseID
	lookup.ServiceID = serviceID

	return lookup, nil
}
