// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"h2-siting-workers/internal/common/validation"
	"h2-siting-workers/pkg/registry"

	usw "h2-siting-workers/internal/workers/admin/update-scoring-weights"
	nsr "h2-siting-workers/internal/workers/communication/notify-siting-results"
	as "h2-siting-workers/internal/workers/siting/analyze-site"
	cs "h2-siting-workers/internal/workers/siting/compare-sites"
	fsp "h2-siting-workers/internal/workers/siting/forecast-site-production"
	gr "h2-siting-workers/internal/workers/siting/generate-recommendations"
)

const defaultRegistryPath = "configs/activity-registry.json"

// inputSchemas are the schemas the workers validate job variables against.
var inputSchemas = map[string]func() string{
	gr.TaskType:  gr.GetInputSchema,
	cs.TaskType:  cs.GetInputSchema,
	as.TaskType:  as.GetInputSchema,
	fsp.TaskType: fsp.GetInputSchema,
	usw.TaskType: usw.GetInputSchema,
	nsr.TaskType: nsr.GetInputSchema,
}

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	syncCmd := flag.NewFlagSet("sync-schemas", flag.ExitOnError)

	var registryPath string
	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, syncCmd} {
		fs.StringVar(&registryPath, "path", defaultRegistryPath, "Path to registry file")
	}

	// Add command flags
	idAdd := addCmd.String("id", "", "Activity ID (e.g., analyze-site)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Analyze Site)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (e.g., siting)")
	taskType := addCmd.String("taskType", "", "Camunda Task Type (e.g., analyze-site)")
	version := addCmd.String("version", "1.0.0", "Version")
	implStatus := addCmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
			fmt.Println("Error: id, displayName, description, category, and taskType are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		err = addActivity(registryPath, registry.Activity{
			ID:                   *idAdd,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *implStatus,
			InputSchema:          map[string]interface{}{},
			OutputSchema:         map[string]interface{}{},
			ErrorCodes:           []string{},
			Timeout:              "30s",
			Workflows:            []string{},
			Tags:                 []string{},
		})
		if err == nil {
			fmt.Printf("Added activity: %s\n", *idAdd)
		}

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err = updateActivity(registryPath, *idUpdate, *field, *value)
		if err == nil {
			fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		var reg *registry.ActivityRegistry
		if reg, err = registry.LoadRegistry(registryPath); err == nil {
			err = reg.Validate()
		}
		if err == nil {
			fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
		}

	case "sync-schemas":
		syncCmd.Parse(os.Args[2:])
		var synced []string
		if synced, err = syncSchemas(registryPath); err == nil {
			fmt.Printf("Synced input schemas for: %v\n", synced)
		}

	case "help":
		fallthrough
	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func addActivity(path string, activity registry.Activity) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	}
	if reg.Find(activity.ID) != nil {
		return fmt.Errorf("activity with ID %s already exists", activity.ID)
	}
	if err := activity.Validate(); err != nil {
		return err
	}

	reg.Activities = append(reg.Activities, activity)
	return reg.Save(path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	a := reg.Find(id)
	if a == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := a.Validate(); err != nil {
		return err
	}
	return reg.Save(path)
}

// syncSchemas copies each worker's input schema into its registry entry.
func syncSchemas(path string) ([]string, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	var synced []string
	for i := range reg.Activities {
		a := &reg.Activities[i]
		schemaFn, ok := inputSchemas[a.TaskType]
		if !ok {
			continue
		}
		schema, err := validation.GetSchemaFromJSON(schemaFn())
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", a.ID, err)
		}
		a.InputSchema = schema
		synced = append(synced, a.ID)
	}
	sort.Strings(synced)

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return synced, reg.Save(path)
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add           Add a new activity to the registry
  update        Update an existing activity's field
  validate      Validate the registry file
  sync-schemas  Copy the workers' input schemas into the registry
  help          Show this help message

Examples:
  registry-updater add -id analyze-site -displayName "Analyze Site" -description "Full single-site report" -category siting -taskType analyze-site
  registry-updater update -id analyze-site -field status -value completed
  registry-updater validate -path configs/activity-registry.json
  registry-updater sync-schemas

Use 'registry-updater <command> -h' for more information about a command.
`)
}
