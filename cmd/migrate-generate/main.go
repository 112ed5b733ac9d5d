package main

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"ariga.io/atlas-provider-gorm/gormschema"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/account"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/branch"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/callregister"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/catalog"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/deadletter"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/enquiry"
	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/telecaller"
)

const minArgs = 2

func main() {
	if len(os.Args) < minArgs {
		log.Fatal("please provide a migration name")
	}

	migrationName := filepath.Base(os.Args[1])

	loader := gormschema.New("postgres")

	schema, err := loader.Load(
		&account.Role{},
		&account.Account{},
		&branch.Branch{},
		&telecaller.Telecaller{},
		&catalog.Course{},
		&catalog.Service{},
		&catalog.Mettad{},
		&catalog.Checklist{},
		&enquiry.Enquiry{},
		&callregister.CallRegister{},
		&deadletter.LeadCaptureDeadLetter{},
	)
	if err != nil {
		log.Fatalf("failed to load gorm schema: %v", err)
	}

	tmp, err := os.CreateTemp("/tmp", "schema-*.sql")
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		err := os.Remove(tmp.Name())
		if err != nil {
			log.Printf("failed to remove temp file %s: %v", tmp.Name(), err)
		}
	}()

	_, err = tmp.WriteString(schema)
	if err != nil {
		log.Fatal(err)
	}

	err = tmp.Close()
	if err != nil {
		log.Printf("failed to close temp file: %v", err)
	}

	abs, err := filepath.Abs(tmp.Name())
	if err != nil {
		log.Fatal(err)
	}

	cmd := exec.Command(
		"atlas",
		"migrate", "diff",
		migrationName,
		"--to", "file://"+abs,
		"--dev-url", "docker+postgres://docker.mci.dev/postgres:14-alpine/dev?search_path=public",
		"--dir", "file://"+filepath.ToSlash(config.Conf.MigrationsPath)+"?format=golang-migrate",
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		log.Fatalf("atlas diff failed: %v\n%s", err, out)
	}

	log.Printf("migration generated successfully:\n%s", out)
}
