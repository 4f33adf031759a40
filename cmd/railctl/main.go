package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/edvin/raildeploy/internal/railctl"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	actor := os.Getenv("RAILCTL_ACTOR")
	if actor == "" {
		actor = os.Getenv("USER")
	}

	switch os.Args[1] {
	case "apply":
		fs := flag.NewFlagSet("apply", flag.ExitOnError)
		file := fs.String("f", "", "Path to project manifest YAML file (required)")
		apiURL := fs.String("api", "http://localhost:8080", "Deployment API base URL")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}

		m, err := railctl.LoadManifest(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		url := m.APIURL
		if url == "" {
			url = *apiURL
		}
		if err := railctl.Apply(railctl.NewClient(url, actor), m); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "deploy-all":
		fs := flag.NewFlagSet("deploy-all", flag.ExitOnError)
		apiURL := fs.String("api", "http://localhost:8080", "Deployment API base URL")
		environment := fs.String("e", "", "Target environment")
		fs.Parse(os.Args[2:])

		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: railctl deploy-all [-api URL] [-e env] <project-id>")
			os.Exit(1)
		}

		if err := railctl.DeployAll(railctl.NewClient(*apiURL, actor), fs.Arg(0), *environment); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		apiURL := fs.String("api", "http://localhost:8080", "Deployment API base URL")
		fs.Parse(os.Args[2:])

		projectID := ""
		if fs.NArg() > 0 {
			projectID = fs.Arg(0)
		}
		if err := railctl.Status(railctl.NewClient(*apiURL, actor), projectID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  railctl apply -f <manifest.yaml> [-api URL]
  railctl deploy-all [-api URL] [-e env] <project-id>
  railctl status [-api URL] [<project-id>]`)
}
