// Command validate checks a program document against the JSON schema
// and the loader's semantic rules without running it, printing either
// "ok" with a grid/node summary or the first load error encountered.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"rewriteengine/internal/loader"
)

func main() {
	var (
		schemaPath = flag.String("schema", "schemas/program.schema.json", "path to the program JSON schema (empty to skip schema validation)")
		quiet      = flag.Bool("quiet", false, "suppress the summary line on success")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: validate [-schema path] <program.json>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	res, err := loader.Load(path, *schemaPath)
	if err != nil {
		log.Fatalf("invalid: %v", err)
	}

	if !*quiet {
		fmt.Printf("ok: grid %dx%dx%d, alphabet %q, root kind %v, digest %s\n",
			res.Grid.MX, res.Grid.MY, res.Grid.MZ, res.Grid.Legend(), res.Root.Kind, res.Digest)
	}
}
