package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	grpcadapter "github.com/simaogato/transferflow/internal/adapter/grpc"
	"github.com/simaogato/transferflow/internal/adapter/share"
	"github.com/simaogato/transferflow/internal/adapter/storage"
	"github.com/simaogato/transferflow/internal/config"
	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/format"
	"github.com/simaogato/transferflow/internal/usecase/banks"
	"github.com/simaogato/transferflow/internal/usecase/receipt"
	"github.com/simaogato/transferflow/internal/usecase/transfer"
	"github.com/simaogato/transferflow/internal/usecase/verification"
)

// Receipt actions accepted by --receipt-action
const (
	actionNone    = "none"
	actionPDF     = "pdf"
	actionShare   = "share"
	actionText    = "text"
	actionPreview = "preview"
)

// options are the per-invocation flags that are not configuration
type options struct {
	mode          string
	account       string
	bank          string
	amount        string
	description   string
	balance       string
	receiptAction string
	shareDest     string
	reference     string
	listBanks     bool
	search        string
	confirmShare  bool
}

func main() {
	flags := pflag.NewFlagSet("transferctl", pflag.ContinueOnError)
	opts := registerFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, flags, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		os.Exit(1)
	}
}

func registerFlags(flags *pflag.FlagSet) *options {
	opts := &options{}

	flags.String("config", "", "path to a TOML config file")
	flags.String("backend.address", "", "Backend API address (host:port)")
	flags.String("backend.token", "", "session token sent as authorization metadata")
	flags.Bool("backend.insecure", false, "disable TLS for the backend connection")
	flags.String("receipt.dir", "", "directory receipts are written to")
	flags.String("log.level", "", "log level (debug, info, warn, error)")
	flags.Bool("log.development", false, "human-readable development logging")

	flags.StringVar(&opts.mode, "mode", "same", "transfer mode: same or inter")
	flags.StringVar(&opts.account, "account", "", "recipient account number")
	flags.StringVar(&opts.bank, "bank", "", "recipient bank code (inter-institution only)")
	flags.StringVar(&opts.amount, "amount", "", "amount to send")
	flags.StringVar(&opts.description, "description", "", "transfer narration")
	flags.StringVar(&opts.balance, "balance", "", "available balance of the source account")
	flags.StringVar(&opts.receiptAction, "receipt-action", actionPDF, "after success: none, pdf, share, text or preview (HTML to stdout)")
	flags.StringVar(&opts.shareDest, "share-dest", "", "directory shared receipts are copied to")
	flags.StringVar(&opts.reference, "reference", "", "fetch an existing transaction and run the receipt action only")
	flags.BoolVar(&opts.listBanks, "list-banks", false, "list banks for inter-institution transfers and exit")
	flags.StringVar(&opts.search, "search", "", "filter --list-banks by name")
	flags.BoolVar(&opts.confirmShare, "confirm-share", false, "ask before sharing; declining is not an error")

	return opts
}

// app wires the adapters and use cases for one invocation
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	backend   *grpcadapter.Client
	directory *banks.DirectoryService
	verifier  *verification.Service
	pipeline  *receipt.Pipeline
	in        *bufio.Reader
	out       io.Writer
}

func run(ctx context.Context, flags *pflag.FlagSet, opts *options, stdin io.Reader, stdout io.Writer) error {
	// 1. Load configuration and logger
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// 2. Connect to the Backend API
	conn, err := grpcadapter.Dial(grpcadapter.DialConfig{
		Address:  cfg.Backend.Address,
		Token:    cfg.Backend.Token,
		Insecure: cfg.Backend.Insecure,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	backend := grpcadapter.NewClient(conn, grpcadapter.BreakerConfig{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		Timeout:             cfg.Breaker.Timeout,
	}, logger)

	// 3. Initialize receipt adapters
	receiptDir := cfg.Receipt.Dir
	if receiptDir == "" {
		receiptDir = storage.DefaultDir()
	}
	fs := afero.NewOsFs()
	store := storage.NewArtifactStore(fs, receiptDir, logger)
	if _, err := store.Purge(ctx); err != nil {
		logger.Warn("could not purge stale receipts", zap.Error(err))
	}

	in := bufio.NewReader(stdin)
	sharer := share.NewWriterSharer(stdout, fs, opts.shareDest, logger)
	if opts.confirmShare {
		sharer.Confirm = func(title string) bool {
			fmt.Fprintf(stdout, "Share %s? [y/N] ", strings.ToLower(title))
			answer, _ := in.ReadString('\n')
			return strings.EqualFold(strings.TrimSpace(answer), "y")
		}
	}

	// 4. Initialize services (use cases)
	a := &app{
		cfg:       cfg,
		logger:    logger,
		backend:   backend,
		directory: banks.NewDirectoryService(backend, logger),
		verifier:  verification.NewService(backend, logger),
		pipeline: receipt.NewPipeline(receipt.NewPDFConverter(), store, sharer, receipt.Style{
			Institution:    cfg.Receipt.Institution,
			CurrencySymbol: cfg.Receipt.CurrencySymbol,
		}, logger),
		in:  in,
		out: stdout,
	}

	// 5. Dispatch
	switch {
	case opts.listBanks:
		return a.listBanks(ctx, opts.search)
	case opts.reference != "":
		record, err := backend.GetTransaction(ctx, opts.reference)
		if err != nil {
			return err
		}
		return a.runReceiptAction(ctx, *record, opts.receiptAction)
	default:
		record, err := a.transfer(ctx, opts)
		if err != nil {
			return err
		}
		return a.runReceiptAction(ctx, *record, opts.receiptAction)
	}
}

func (a *app) listBanks(ctx context.Context, query string) error {
	list, err := a.directory.Search(ctx, query)
	if err != nil {
		return err
	}
	for _, bank := range list {
		fmt.Fprintf(a.out, "%-8s %s\n", bank.Code, bank.Name)
	}
	return nil
}

// transfer drives one intent through verify, continue and confirm
func (a *app) transfer(ctx context.Context, opts *options) (*domain.TransactionRecord, error) {
	mode, err := parseMode(opts.mode)
	if err != nil {
		return nil, err
	}

	machine, err := transfer.NewMachine(mode, a.verifier, a.backend, transfer.Config{
		AccountNumberLength: a.cfg.Transfer.AccountLength,
		VerifyTimeout:       a.cfg.Backend.VerifyTimeout,
		SubmitTimeout:       a.cfg.Backend.SubmitTimeout,
		OnChange: func(s transfer.Snapshot) {
			a.logger.Debug("transfer state",
				zap.String("verification", string(s.Verification.Phase)),
				zap.Bool("confirmation_open", s.ConfirmationOpen),
				zap.String("submission", string(s.Submission.Phase)),
			)
		},
	}, a.logger)
	if err != nil {
		return nil, err
	}
	defer machine.Discard()

	if mode.RequiresRoutingCode() {
		if err := machine.EditRoutingCode(opts.bank); err != nil {
			return nil, err
		}
	}
	for _, edit := range []func() error{
		func() error { return machine.EditRecipient(opts.account) },
		func() error { return machine.EditAmount(opts.amount) },
		func() error { return machine.EditDescription(opts.description) },
	} {
		if err := edit(); err != nil {
			return nil, err
		}
	}

	if err := machine.Verify(ctx); err != nil {
		return nil, err
	}
	snap := machine.Snapshot()
	recipient := snap.Verification.DisplayName
	if mode.RequiresRoutingCode() {
		if bank, err := a.directory.Lookup(ctx, snap.RoutingCode); err == nil {
			recipient += " (" + bank.Name + ")"
		}
	}

	if err := machine.Continue(format.ParseAmount(opts.balance)); err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Send %s to %s, account %s\n",
		format.FormatAmount(snap.Amount, a.cfg.Receipt.CurrencySymbol),
		recipient,
		format.MaskAccountNumber(snap.RecipientIdentifier),
	)

	pin, err := a.readPin()
	if err != nil {
		return nil, err
	}
	if err := machine.EnterPin(pin); err != nil {
		return nil, err
	}

	record, err := machine.Confirm(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "Transfer %s: %s\n", record.Status.Label(), record.Reference)
	return record, nil
}

// readPin takes the PIN from the environment, or from the next input line
func (a *app) readPin() (string, error) {
	if pin := os.Getenv(config.EnvPrefix + "_PIN"); pin != "" {
		return pin, nil
	}
	fmt.Fprint(a.out, "PIN: ")
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read pin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (a *app) runReceiptAction(ctx context.Context, record domain.TransactionRecord, action string) error {
	switch action {
	case actionNone:
		return nil
	case actionPDF:
		loc, err := a.pipeline.ExportPDF(ctx, record)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Receipt saved: %s\n", loc.Path)
		return nil
	case actionShare:
		if err := a.pipeline.ShareArtifact(ctx, record); err != nil {
			// The text path never depends on the document path
			a.logger.Warn("document share failed, falling back to text", zap.Error(err))
			return a.pipeline.ShareText(ctx, record)
		}
		return nil
	case actionText:
		return a.pipeline.ShareText(ctx, record)
	case actionPreview:
		html, err := a.pipeline.Render(record).HTML()
		if err != nil {
			return fmt.Errorf("failed to render receipt preview: %w", err)
		}
		fmt.Fprintln(a.out, html)
		return nil
	default:
		return fmt.Errorf("unknown receipt action %q", action)
	}
}

func parseMode(raw string) (domain.TransferMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "same", "intra":
		return domain.TransferModeSameInstitution, nil
	case "inter", "other":
		return domain.TransferModeInterInstitution, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidMode, raw)
	}
}

// userMessage picks the text shown for a failed run
func userMessage(err error) string {
	var (
		verr *domain.VerificationError
		serr *domain.SubmissionError
		perr *receipt.PipelineError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Reason
	case errors.As(err, &serr):
		return serr.Message
	case errors.As(err, &perr):
		return perr.Message()
	case domain.IsUnavailable(err):
		return domain.DefaultUnavailableMessage
	default:
		return domain.UserMessage(err, err.Error())
	}
}
