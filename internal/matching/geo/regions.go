package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTable returns the built-in reference coordinates for Indian states
// and union territories. Each call returns a fresh copy.
func DefaultTable() Table {
	return Table{
		"Andhra Pradesh":    {16.5062, 80.6480},
		"Arunachal Pradesh": {27.0844, 93.6053},
		"Assam":             {26.1433, 91.7898},
		"Bihar":             {25.5941, 85.1376},
		"Chhattisgarh":      {21.2514, 81.6296},
		"Goa":               {15.2993, 74.1240},
		"Gujarat":           {23.0225, 72.5714},
		"Haryana":           {30.7333, 76.7794},
		"Himachal Pradesh":  {31.1048, 77.1734},
		"Jharkhand":         {23.6102, 85.2799},
		"Karnataka":         {12.9716, 77.5946},
		"Kerala":            {8.5241, 76.9366},
		"Madhya Pradesh":    {23.2599, 77.4126},
		"Maharashtra":       {19.0760, 72.8777},
		"Manipur":           {24.8170, 93.9368},
		"Meghalaya":         {25.5788, 91.8933},
		"Mizoram":           {23.7271, 92.7176},
		"Nagaland":          {25.6751, 94.1086},
		"Odisha":            {20.2961, 85.8245},
		"Punjab":            {30.9010, 75.8573},
		"Rajasthan":         {26.9124, 75.7873},
		"Sikkim":            {27.3389, 88.6065},
		"Tamil Nadu":        {11.0271, 78.6569},
		"Telangana":         {17.3850, 78.4867},
		"Tripura":           {23.8315, 91.2868},
		"Uttar Pradesh":     {26.8467, 80.9462},
		"Uttarakhand":       {30.3165, 78.0322},
		"West Bengal":       {22.5726, 88.3639},

		"Andaman and Nicobar Islands":              {11.6234, 92.7265},
		"Chandigarh":                               {30.7333, 76.7794},
		"Dadra and Nagar Haveli and Daman and Diu": {20.4283, 72.8397},
		"Dadra and Nagar Haveli":                   {20.2704, 73.0083},
		"Daman and Diu":                            {20.3974, 72.8328},
		"Delhi":                                    {28.7041, 77.1025},
		"Jammu and Kashmir":                        {34.0837, 74.7973},
		"Ladakh":                                   {34.1526, 77.5771},
		"Lakshadweep":                              {10.5667, 72.6417},
		"Puducherry":                               {11.9416, 79.8083},
	}
}

// LoadTable reads a region table from a YAML or JSON file keyed by region name.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region table: %w", err)
	}

	var table Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &table)
	default:
		err = yaml.Unmarshal(data, &table)
	}
	if err != nil {
		return nil, fmt.Errorf("parse region table %s: %w", path, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("region table %s is empty", path)
	}

	for name, c := range table {
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			return nil, fmt.Errorf("region %q has out-of-range coordinate (%f, %f)", name, c.Lat, c.Lon)
		}
	}
	return table, nil
}
