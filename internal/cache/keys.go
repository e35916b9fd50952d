package cache

import "fmt"

func KeyVehicleLocation(tenantID, vehicleID string) string {
	return fmt.Sprintf("location:%s:%s", tenantID, vehicleID)
}
