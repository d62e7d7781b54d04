// Command ddcmccs talks DDC/CI to a monitor over I2C (or a simulated bus)
// and reads or writes its VCP features.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"

	"github.com/ddcgo/ddcmccs/ddcci"
	"github.com/ddcgo/ddcmccs/i2ctransport"
	"github.com/ddcgo/ddcmccs/registryyaml"
	"github.com/ddcgo/ddcmccs/simtransport"
)

const timestampLayout = "%Y%m%d-%H%M%S"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands: detect, capabilities, getvcp, setvcp, dumpvcp, loadvcp, savesettings\n")
}

/*-------------------------------------------------------------------
 *
 * Name:	main
 *
 * Purpose:	Dispatch to one of the ddcmccs subcommands.
 *
 *--------------------------------------------------------------------*/

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "detect":
		err = runDetect(args)
	case "capabilities":
		err = runCapabilities(args)
	case "getvcp":
		err = runGetVCP(args)
	case "setvcp":
		err = runSetVCP(args)
	case "dumpvcp":
		err = runDumpVCP(args)
	case "loadvcp":
		err = runLoadVCP(args)
	case "savesettings":
		err = runSaveSettings(args)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ddcmccs: %s: %s\n", cmd, err)
		os.Exit(1)
	}
}

// commonFlags bundles the flags every subcommand accepts: which bus to talk
// over (or the simulated one), verbosity, and whether to verify writes.
type commonFlags struct {
	bus      *string
	simulate *bool
	verbose  *bool
	verify   *bool
}

func addCommonFlags(fs *pflag.FlagSet) *commonFlags {
	return &commonFlags{
		bus:      fs.StringP("bus", "b", "/dev/i2c-0", "I2C bus device node."),
		simulate: fs.Bool("simulate", false, "Talk to an in-process simulated monitor instead of real hardware."),
		verbose:  fs.BoolP("verbose", "v", false, "Enable debug logging."),
		verify:   fs.Bool("verify", false, "Read back every setvcp write and fail on mismatch."),
	}
}

func newEngine(c *commonFlags) (*ddcci.Engine, error) {
	registry, err := registryyaml.Default()
	if err != nil {
		return nil, fmt.Errorf("load feature registry: %w", err)
	}

	logger := log.New(os.Stderr)
	if *c.verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	e := ddcci.NewEngine(registry)
	e.SetLogger(logger)
	e.SetVerify(*c.verify)
	return e, nil
}

// openDisplay opens either the simulated transport or a real I2C bus,
// depending on flags, and returns a DisplayHandle plus a close function.
func openDisplay(c *commonFlags) (ddcci.DisplayHandle, func() error, error) {
	if *c.simulate {
		tr, err := simtransport.Open(simtransport.NewMonitor())
		if err != nil {
			return nil, nil, fmt.Errorf("open simulated transport: %w", err)
		}
		return simtransport.NewHandle(tr), tr.Close, nil
	}

	tr, err := i2ctransport.Open(*c.bus)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", *c.bus, err)
	}
	dh := &i2ctransport.Handle{
		Tr:          tr,
		ModelStr:    "unknown",
		SerialStr:   "unknown",
		MCCSMajor:   2,
		MCCSMinor:   1,
		SettleDelay: 40 * time.Millisecond,
		DisplayTag:  *c.bus,
	}
	return dh, tr.Close, nil
}

/*-------------------------------------------------------------------
 *
 * Name:	runDetect
 *
 * Purpose:	List the /dev/i2c-* device nodes. Buses are not probed, so
 *		ones without a DDC/CI-capable display are listed too.
 *
 *--------------------------------------------------------------------*/

func runDetect(args []string) error {
	fs := pflag.NewFlagSet("detect", pflag.ExitOnError)
	simulate := fs.Bool("simulate", false, "Report the simulated bus instead of scanning hardware.")
	fs.Parse(args)

	if *simulate {
		fmt.Println("sim: in-process simulated monitor")
		return nil
	}

	buses, err := i2ctransport.DiscoverBuses()
	if err != nil {
		return err
	}
	for _, b := range buses {
		fmt.Println(b)
	}
	return nil
}

func runCapabilities(args []string) error {
	fs := pflag.NewFlagSet("capabilities", pflag.ExitOnError)
	c := addCommonFlags(fs)
	fs.Parse(args)

	e, err := newEngine(c)
	if err != nil {
		return err
	}
	dh, closeFn, err := openDisplay(c)
	if err != nil {
		return err
	}
	defer closeFn()

	caps, err := ddcci.ReadMultiPart(e, dh, ddcci.MultiPartCapabilities, 0, ddcci.MaxFragment*8)
	if err != nil {
		return err
	}
	fmt.Println(string(caps))
	return nil
}

func runGetVCP(args []string) error {
	fs := pflag.NewFlagSet("getvcp", pflag.ExitOnError)
	c := addCommonFlags(fs)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: getvcp <code-hex> [flags]")
	}
	code, err := strconv.ParseUint(fs.Arg(0), 16, 8)
	if err != nil {
		return fmt.Errorf("invalid feature code %q: %w", fs.Arg(0), err)
	}

	e, err := newEngine(c)
	if err != nil {
		return err
	}
	dh, closeFn, err := openDisplay(c)
	if err != nil {
		return err
	}
	defer closeFn()

	nt, err := ddcci.GetNontable(e, dh, byte(code))
	if err != nil {
		return err
	}
	fmt.Printf("current=%d maximum=%d\n", nt.CurValue(), nt.MaxValue())
	return nil
}

func runSetVCP(args []string) error {
	fs := pflag.NewFlagSet("setvcp", pflag.ExitOnError)
	c := addCommonFlags(fs)
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: setvcp <code-hex> <value> [flags]")
	}
	code, err := strconv.ParseUint(fs.Arg(0), 16, 8)
	if err != nil {
		return fmt.Errorf("invalid feature code %q: %w", fs.Arg(0), err)
	}
	value, err := strconv.ParseUint(fs.Arg(1), 10, 16)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", fs.Arg(1), err)
	}

	e, err := newEngine(c)
	if err != nil {
		return err
	}
	dh, closeFn, err := openDisplay(c)
	if err != nil {
		return err
	}
	defer closeFn()

	if *c.verify {
		readBack, ok, err := ddcci.SetValue(e, dh, ddcci.ContinuousValue(byte(code), 0, uint16(value)))
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("verified: current=%d\n", readBack.Cur())
		}
		return nil
	}
	return ddcci.SetNontable(e, dh, byte(code), uint16(value))
}

func runDumpVCP(args []string) error {
	fs := pflag.NewFlagSet("dumpvcp", pflag.ExitOnError)
	c := addCommonFlags(fs)
	outPath := fs.StringP("output", "o", "", "Output file path. Defaults to a name derived from the display's model/serial.")
	fs.Parse(args)

	e, err := newEngine(c)
	if err != nil {
		return err
	}
	dh, closeFn, err := openDisplay(c)
	if err != nil {
		return err
	}
	defer closeFn()

	rec, err := ddcci.Dump(e, dh, time.Now().UnixMilli())
	if err != nil {
		return err
	}

	timestampText, err := strftime.Format(timestampLayout, time.Now())
	if err != nil {
		return fmt.Errorf("format timestamp: %w", err)
	}
	path := *outPath
	if path == "" {
		path = ddcci.SuggestFilename(rec, timestampText)
	}
	return os.WriteFile(path, []byte(ddcci.Serialize(rec, timestampText)), 0o644)
}

func runLoadVCP(args []string) error {
	fs := pflag.NewFlagSet("loadvcp", pflag.ExitOnError)
	c := addCommonFlags(fs)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: loadvcp <file> [flags]")
	}

	registry, err := registryyaml.Default()
	if err != nil {
		return err
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	rec, err := ddcci.Parse(f, registry)
	if err != nil {
		return err
	}
	if err := ddcci.ValidateForApply(rec); err != nil {
		return err
	}

	e, err := newEngine(c)
	if err != nil {
		return err
	}
	dh, closeFn, err := openDisplay(c)
	if err != nil {
		return err
	}
	defer closeFn()

	return ddcci.Load(e, dh, rec)
}

func runSaveSettings(args []string) error {
	fs := pflag.NewFlagSet("savesettings", pflag.ExitOnError)
	c := addCommonFlags(fs)
	fs.Parse(args)

	e, err := newEngine(c)
	if err != nil {
		return err
	}
	dh, closeFn, err := openDisplay(c)
	if err != nil {
		return err
	}
	defer closeFn()

	return ddcci.SaveCurrentSettings(e, dh)
}
