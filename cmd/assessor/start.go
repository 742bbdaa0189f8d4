package main

import (
	"fmt"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/urfave/cli/v2"

	assessor "github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/agreement"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/core/ledger"
	"github.com/ScottSanders2/RWA-Rental-Yield-Tokenisation-Assessor-sub001/repo"
)

// start hosts the governance core in local mode: an in-process cash book and
// agreement registry, with proposals and the event journal persisted under
// the repo root.
func start(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	r, err := repo.Load(p)
	if err != nil {
		return err
	}

	err = log.Initialize(
		log.WithReportCaller(r.Config.Log.ReportCaller),
		log.WithPersist(true),
		log.WithFilePath(filepath.Join(r.Config.RepoRoot, repo.LogsDirName)),
		log.WithFileName(r.Config.Log.Filename),
		log.WithMaxAge(r.Config.Log.MaxAge),
		log.WithRotationTime(r.Config.Log.RotationTime),
	)
	if err != nil {
		return fmt.Errorf("log initialize: %w", err)
	}

	printVersion()

	system, err := core.NewSystem(r.Config, ledger.NewMemoryAsset(), agreement.NewMemoryRegistry())
	if err != nil {
		return fmt.Errorf("new system error: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	handleShutdown(system, &wg)

	system.Logger.Infof("restored %d proposals", len(system.Governance.Proposals()))

	fmt.Println("=============Assessor is ready=============")

	wg.Wait()

	return nil
}

func printVersion() {
	fmt.Printf("Assessor version: %s-%s-%s\n", assessor.CurrentVersion, assessor.CurrentBranch, assessor.CurrentCommit)
	fmt.Printf("App build date: %s\n", assessor.BuildDate)
	fmt.Printf("System version: %s\n", assessor.Platform)
	fmt.Printf("Golang version: %s\n", assessor.GoVersion)
	fmt.Println()
}

func handleShutdown(system *core.System, wg *sync.WaitGroup) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		system.Logger.Info("shutdown")
		wg.Done()
		os.Exit(0)
	}()
}
