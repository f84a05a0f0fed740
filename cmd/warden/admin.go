package main

import (
	"fmt"
	"time"

	"github.com/guildwarden/warden/automod/casestore"
	"github.com/guildwarden/warden/util/cliutil"

	cli "github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func openDB(cctx *cli.Context) (*gorm.DB, error) {
	return cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
}

func userArg(cctx *cli.Context) (string, error) {
	user := cctx.Args().First()
	if user == "" {
		return "", fmt.Errorf("need to provide user id as an argument")
	}
	return user, nil
}

func runCasesList(cctx *cli.Context) error {
	ctx := cctx.Context
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	db, err := openDB(cctx)
	if err != nil {
		return err
	}
	cases, err := casestore.NewSQLCaseStore(db)
	if err != nil {
		return err
	}
	list, err := cases.ListCases(ctx, user)
	if err != nil {
		return err
	}
	if action := cctx.String("action"); action != "" {
		list = casestore.FilterAction(list, action)
	}
	if len(list) == 0 {
		fmt.Println("no cases")
		return nil
	}
	for _, c := range list {
		fmt.Printf("#%d\t%s\t%s\tby=%s\t%s\n", c.ID, c.CreatedAt.Format(time.RFC3339), c.Action, c.ActorID, c.Reason)
	}
	return nil
}

func runWarningsGet(cctx *cli.Context) error {
	ctx := cctx.Context
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	db, err := openDB(cctx)
	if err != nil {
		return err
	}
	warnings, err := openWarningStore(cctx.String("warning-store"), cctx.String("redis-url"), db)
	if err != nil {
		return err
	}
	count, err := warnings.GetCount(ctx, user)
	if err != nil {
		return err
	}
	fmt.Println(count)
	return nil
}

func runWarningsClear(cctx *cli.Context) error {
	ctx := cctx.Context
	user, err := userArg(cctx)
	if err != nil {
		return err
	}
	db, err := openDB(cctx)
	if err != nil {
		return err
	}
	warnings, err := openWarningStore(cctx.String("warning-store"), cctx.String("redis-url"), db)
	if err != nil {
		return err
	}
	cases, err := casestore.NewSQLCaseStore(db)
	if err != nil {
		return err
	}
	if err := warnings.Reset(ctx, user); err != nil {
		return err
	}
	id, err := cases.AddCase(ctx, casestore.Case{
		SubjectID: user,
		ActorID:   cctx.String("actor"),
		Action:    casestore.ActionClearWarnings,
		Reason:    cctx.String("reason"),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("warnings cleared but case not recorded: %w", err)
	}
	fmt.Printf("cleared warnings for %s (case #%d)\n", user, id)
	return nil
}
