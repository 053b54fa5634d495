package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rcliao/seiqhcdro/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import runs from JSON",
		Long:  "Import runs from JSON (file or stdin). Expects the format produced by `runs export`.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	runsCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	switch {
	case len(args) == 1:
		data, err = os.ReadFile(args[0])
	case isStdinPiped():
		data, err = io.ReadAll(cmd.InOrStdin())
	default:
		err = errors.New("pipe exported JSON on stdin or name a file")
	}
	if err != nil {
		exitErr("read input", err)
	}

	var runs []model.Run
	if err := json.Unmarshal(data, &runs); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	imported, err := s.Import(cmd.Context(), runs)
	if err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", imported)
}
