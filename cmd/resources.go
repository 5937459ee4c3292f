package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/hospital-console/internal/api"
	"github.com/iksnae/hospital-console/internal/app"
	"github.com/iksnae/hospital-console/internal/store"
	"github.com/spf13/cobra"
)

var doneStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("42")).
	Bold(true)

// resource describes how one CRUD container is exposed on the command line.
type resource[T store.Entity, In any] struct {
	name    string
	plural  string
	pick    func(*app.App) *store.CRUD[T, In]
	columns []string
	row     func(T) []string
	detail  func(T) [][2]string

	// input registers the create/update flags on c and returns a reader
	// for their values.
	input func(c *cobra.Command) func(c *cobra.Command) (In, error)

	// filter registers list flags and returns a hook applied before the
	// list is fetched.
	filter func(c *cobra.Command) func(*app.App) error
}

func (r resource[T, In]) command() *cobra.Command {
	parent := &cobra.Command{
		Use:   r.plural,
		Short: "Manage " + r.plural,
	}
	parent.AddCommand(r.listCmd(), r.showCmd(), r.createCmd(), r.updateCmd(), r.deleteCmd())
	return parent
}

func (r resource[T, In]) listCmd() *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "list",
		Short: "List " + r.plural,
		Args:  cobra.NoArgs,
	}
	var hook func(*app.App) error
	if r.filter != nil {
		hook = r.filter(c)
	}
	c.RunE = withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		if hook != nil {
			if err := hook(a); err != nil {
				return err
			}
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		items, err := r.pick(a).FetchAll(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), output, items, func(w io.Writer) {
			rows := make([][]string, len(items))
			for i, it := range items {
				rows[i] = r.row(it)
			}
			writeTable(w, r.plural, r.columns, rows)
		})
	})
	c.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json, yaml")
	return c
}

func (r resource[T, In]) showCmd() *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one " + r.name,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			item, err := r.pick(a).Fetch(ctx, api.ID(args[0]))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, item, func(w io.Writer) {
				writeDetail(w, fmt.Sprintf("%s %s", r.name, item.EntityID()), r.detail(item))
			})
		}),
	}
	c.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table, json, yaml")
	return c
}

func (r resource[T, In]) createCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "create",
		Short: "Create a " + r.name,
		Args:  cobra.NoArgs,
	}
	read := r.input(c)
	c.RunE = withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		in, err := read(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		item, err := r.pick(a).Create(ctx, in)
		if err != nil {
			return err
		}
		r.printDone(cmd.OutOrStdout(), "Created", item)
		return nil
	})
	return c
}

func (r resource[T, In]) updateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a " + r.name,
		Long:  "Update a " + r.name + ". Only the flags that are given are sent.",
		Args:  cobra.ExactArgs(1),
	}
	read := r.input(c)
	c.RunE = withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		in, err := read(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		item, err := r.pick(a).Update(ctx, api.ID(args[0]), in)
		if err != nil {
			return err
		}
		r.printDone(cmd.OutOrStdout(), "Updated", item)
		return nil
	})
	return c
}

func (r resource[T, In]) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + r.name,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			if err := r.pick(a).Delete(ctx, api.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s %s\n", doneStyle.Render("✓"), r.name, args[0])
			return nil
		}),
	}
}

func (r resource[T, In]) printDone(w io.Writer, verb string, item T) {
	fmt.Fprintf(w, "%s %s %s %s\n", doneStyle.Render("✓"), verb, r.name, item.EntityID())
	writeDetail(w, "", r.detail(item))
}

var usersResource = resource[api.User, api.UserInput]{
	name:    "user",
	plural:  "users",
	pick:    func(a *app.App) *app.Users { return a.Users },
	columns: []string{"ID", "USERNAME", "NAME", "ROLE", "ACTIVE"},
	row: func(u api.User) []string {
		return []string{idStyle.Render(u.ID.String()), u.Username, dash(u.FullName), u.Role, strconv.FormatBool(u.Active)}
	},
	detail: func(u api.User) [][2]string {
		created := ""
		if !u.CreatedAt.IsZero() {
			created = u.CreatedAt.Format("2006-01-02 15:04")
		}
		return [][2]string{
			{"Username", u.Username},
			{"Name", u.FullName},
			{"Email", u.Email},
			{"Role", u.Role},
			{"Active", strconv.FormatBool(u.Active)},
			{"Created", created},
		}
	},
	input: func(c *cobra.Command) func(*cobra.Command) (api.UserInput, error) {
		var in api.UserInput
		var active bool
		f := c.Flags()
		f.StringVar(&in.Username, "username", "", "Login name")
		f.StringVar(&in.Email, "email", "", "Email address")
		f.StringVar(&in.FullName, "full-name", "", "Display name")
		f.StringVar(&in.Role, "role", "", "Role, e.g. admin, doctor, nurse")
		f.StringVar(&in.Password, "password", "", "Initial password")
		f.BoolVar(&active, "active", true, "Whether the account may log in")
		return func(cmd *cobra.Command) (api.UserInput, error) {
			out := in
			if cmd.Flags().Changed("active") {
				v := active
				out.Active = &v
			}
			return out, nil
		}
	},
}

var wardsResource = resource[api.Ward, api.WardInput]{
	name:    "ward",
	plural:  "wards",
	pick:    func(a *app.App) *app.Wards { return a.Wards },
	columns: []string{"ID", "NAME", "DEPARTMENT", "FLOOR", "OCCUPANCY"},
	row: func(w api.Ward) []string {
		return []string{
			idStyle.Render(w.ID.String()), w.Name, dash(w.Department),
			strconv.Itoa(w.Floor), fmt.Sprintf("%d/%d", w.Occupied, w.Capacity),
		}
	},
	detail: func(w api.Ward) [][2]string {
		return [][2]string{
			{"Name", w.Name},
			{"Department", w.Department},
			{"Floor", strconv.Itoa(w.Floor)},
			{"Occupancy", fmt.Sprintf("%d/%d", w.Occupied, w.Capacity)},
			{"Description", w.Description},
		}
	},
	input: func(c *cobra.Command) func(*cobra.Command) (api.WardInput, error) {
		var in api.WardInput
		var floor, capacity int
		f := c.Flags()
		f.StringVar(&in.Name, "name", "", "Ward name")
		f.StringVar(&in.Department, "department", "", "Department")
		f.IntVar(&floor, "floor", 0, "Floor number")
		f.IntVar(&capacity, "capacity", 0, "Number of beds the ward can hold")
		f.StringVar(&in.Description, "description", "", "Free text description")
		return func(cmd *cobra.Command) (api.WardInput, error) {
			out := in
			if cmd.Flags().Changed("floor") {
				v := floor
				out.Floor = &v
			}
			if cmd.Flags().Changed("capacity") {
				if capacity < 0 {
					return out, fmt.Errorf("capacity must not be negative")
				}
				v := capacity
				out.Capacity = &v
			}
			return out, nil
		}
	},
}

var bedsResource = resource[api.Bed, api.BedInput]{
	name:    "bed",
	plural:  "beds",
	pick:    func(a *app.App) *app.Beds { return a.Beds },
	columns: []string{"ID", "NUMBER", "WARD", "STATUS", "PATIENT"},
	row: func(b api.Bed) []string {
		return []string{idStyle.Render(b.ID.String()), b.Number, b.WardID.String(), b.Status, dash(b.PatientName)}
	},
	detail: func(b api.Bed) [][2]string {
		return [][2]string{
			{"Number", b.Number},
			{"Ward", b.WardID.String()},
			{"Status", b.Status},
			{"Patient", b.PatientName},
		}
	},
	input: func(c *cobra.Command) func(*cobra.Command) (api.BedInput, error) {
		var in api.BedInput
		var ward, patient string
		f := c.Flags()
		f.StringVar(&in.Number, "number", "", "Bed number, e.g. C-4")
		f.StringVar(&ward, "ward", "", "Ward id")
		f.StringVar(&in.Status, "status", "", "Status: available, occupied, maintenance")
		f.StringVar(&patient, "patient", "", "Patient name; empty to discharge")
		return func(cmd *cobra.Command) (api.BedInput, error) {
			out := in
			out.WardID = api.ID(ward)
			if err := checkBedStatus(out.Status); err != nil {
				return out, err
			}
			if cmd.Flags().Changed("patient") {
				v := patient
				out.PatientName = &v
			}
			return out, nil
		}
	},
	filter: func(c *cobra.Command) func(*app.App) error {
		var ward, status string
		c.Flags().StringVar(&ward, "ward", "", "Only beds in this ward")
		c.Flags().StringVar(&status, "status", "", "Only beds with this status")
		return func(a *app.App) error {
			if err := checkBedStatus(status); err != nil {
				return err
			}
			a.SetBedFilter(api.BedFilter{WardID: api.ID(ward), Status: status})
			return nil
		}
	},
}

func checkBedStatus(s string) error {
	switch s {
	case "", api.BedAvailable, api.BedOccupied, api.BedMaintenance:
		return nil
	}
	return fmt.Errorf("invalid bed status %q (want %s, %s or %s)", s, api.BedAvailable, api.BedOccupied, api.BedMaintenance)
}

func init() {
	rootCmd.AddCommand(usersResource.command(), wardsResource.command(), bedsResource.command())
}
