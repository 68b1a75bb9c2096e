package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/meihsieh/bookship-bot/internal/common"
	"github.com/meihsieh/bookship-bot/internal/store"
)

// storehealth opens the workbook and lists its worksheets, the same check
// the daemon's health route performs. Exit code 1 means the workbook is
// missing or unreadable.
func main() {
	cfg := common.LoadConfig()
	st := store.NewXLSX(cfg.Store.WorkbookPath, nil)

	names, err := st.SheetNames(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "workbook %s: %v\n", cfg.Store.WorkbookPath, err)
		os.Exit(1)
	}
	fmt.Printf("OK / Worksheets: %s\n", strings.Join(names, ", "))
}
