package sandbox

import (
	"fmt"
	"os"

	"github.com/iksnae/hospital-console/internal/api"
	"gopkg.in/yaml.v3"
)

// Seed is the initial content of a sandbox database.
type Seed struct {
	Users []SeedUser `yaml:"users"`
	Wards []SeedWard `yaml:"wards"`
	Logs  []SeedLog  `yaml:"logs"`
}

type SeedUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

type SeedWard struct {
	Name        string    `yaml:"name"`
	Department  string    `yaml:"department"`
	Floor       int       `yaml:"floor"`
	Capacity    int       `yaml:"capacity"`
	Description string    `yaml:"description"`
	Beds        []SeedBed `yaml:"beds"`
}

type SeedBed struct {
	Number  string `yaml:"number"`
	Status  string `yaml:"status"`
	Patient string `yaml:"patient"`
}

type SeedLog struct {
	Level   string `yaml:"level"`
	Source  string `yaml:"source"`
	Message string `yaml:"message"`
}

// DefaultSeed is a small hospital used when no seed file is given.
func DefaultSeed() Seed {
	return Seed{
		Users: []SeedUser{
			{Username: "admin", Email: "admin@example.org", FullName: "Site Administrator", Role: "admin"},
			{Username: "dr.ada", Email: "ada@example.org", FullName: "Ada Okafor", Role: "doctor"},
			{Username: "nurse.li", Email: "li@example.org", FullName: "Li Wei", Role: "nurse"},
		},
		Wards: []SeedWard{
			{
				Name: "Cardiology", Department: "Medicine", Floor: 2, Capacity: 4,
				Description: "Cardiac monitoring and step-down care",
				Beds: []SeedBed{
					{Number: "C-1", Status: api.BedOccupied, Patient: "J. Doe"},
					{Number: "C-2", Status: api.BedOccupied, Patient: "M. Rossi"},
					{Number: "C-3", Status: api.BedAvailable},
					{Number: "C-4", Status: api.BedMaintenance},
				},
			},
			{
				Name: "Pediatrics", Department: "Children", Floor: 3, Capacity: 3,
				Beds: []SeedBed{
					{Number: "P-1", Status: api.BedAvailable},
					{Number: "P-2", Status: api.BedAvailable},
					{Number: "P-3", Status: api.BedOccupied, Patient: "A. Kim"},
				},
			},
		},
		Logs: []SeedLog{
			{Level: "info", Source: "auth", Message: "admin signed in"},
			{Level: "warn", Source: "beds", Message: "bed C-4 flagged for maintenance"},
			{Level: "error", Source: "chatbot", Message: "upstream model timed out"},
		},
	}
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return s, nil
}

// Apply inserts the seed into d.
func (s Seed) Apply(d *DB) error {
	for _, u := range s.Users {
		if _, err := d.CreateUser(api.UserInput{Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role}); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	for _, w := range s.Wards {
		floor, capacity := w.Floor, w.Capacity
		ward, err := d.CreateWard(api.WardInput{
			Name:        w.Name,
			Department:  w.Department,
			Floor:       &floor,
			Capacity:    &capacity,
			Description: w.Description,
		})
		if err != nil {
			return fmt.Errorf("seed ward %s: %w", w.Name, err)
		}
		for _, b := range w.Beds {
			patient := b.Patient
			if _, err := d.CreateBed(api.BedInput{Number: b.Number, WardID: ward.ID, Status: b.Status, PatientName: &patient}); err != nil {
				return fmt.Errorf("seed bed %s: %w", b.Number, err)
			}
		}
	}
	for _, l := range s.Logs {
		if err := d.AddLog(l.Level, l.Source, l.Message, ""); err != nil {
			return fmt.Errorf("seed log: %w", err)
		}
	}
	return nil
}
