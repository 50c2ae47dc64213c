package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contactbook/internal/config"
	"gitlab.com/dirk.krummacker/contactbook/internal/logger"
	"gitlab.com/dirk.krummacker/contactbook/internal/store"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go -file=../../scripts/database.sql
func main() {
	filePtr := flag.String("file", "database.sql", "the sql file to execute")
	flag.Parse()

	cfg, err := config.LoadDatabase()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(true, cfg.LogFile)
	defer log.Sync() //nolint:errcheck

	sqlDB, err := store.CreateDatabase(cfg.DSN())
	if err != nil {
		log.Fatal("cannot open database", zap.Error(err))
	}
	db := sqlx.NewDb(sqlDB, "mysql")
	defer db.Close()

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		log.Fatal("cannot open sql file", zap.Error(err))
	}
	defer readFile.Close()

	statements, err := splitStatements(bufio.NewScanner(readFile))
	if err != nil {
		log.Fatal("cannot read sql file", zap.Error(err))
	}
	for i, sql := range statements {
		if _, err := db.Exec(sql); err != nil {
			log.Fatal("statement failed", zap.Int("statement", i+1), zap.String("sql", sql), zap.Error(err))
		}
	}
	log.Info("migration done", zap.String("file", *filePtr), zap.Int("statements", len(statements)))
}

// splitStatements joins the lines of a script into statements that end with ';'. Lines starting
// with '--' are comments.
func splitStatements(fileScanner *bufio.Scanner) ([]string, error) {
	fileScanner.Split(bufio.ScanLines)
	var statements []string
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := strings.TrimSpace(fileScanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSpace(builder.String()))
			builder = strings.Builder{}
		}
	}
	return statements, fileScanner.Err()
}
