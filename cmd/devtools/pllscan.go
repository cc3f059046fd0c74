package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/AGPFMiner/bmctl/bm1387"
)

// pllscan prints the PLL divider table of the BM1387 and resolves
// requested frequencies against it. Handy when picking per chip
// frequencies for a board profile, the achievable grid is coarser than
// the config file suggests.
//
// Usage:
//
//	devtools            print the whole table
//	devtools 650 643.75 resolve the given MHz values

func printEntry(pf bm1387.PllFrequency) {
	fmt.Printf("%9.3f MHz  fb %3d  ref %2d  pd1 %d  pd2 %d  reg 0x%06X\n",
		float64(pf.Frequency)/1e6,
		pf.Reg.FbDiv, pf.Reg.RefDiv, pf.Reg.PostDiv1, pf.Reg.PostDiv2,
		pf.Reg.ToReg())
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		for _, pf := range bm1387.PllTable() {
			printEntry(pf)
		}
		return
	}
	for _, arg := range args {
		mhz, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			log.Fatalf("%q is not a frequency in MHz", arg)
		}
		pf, err := bm1387.LookupFreq(uint64(mhz * 1e6))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s MHz -> ", arg)
		printEntry(pf)
		cmd := bm1387.NewSetConfigCmd(bm1387.AllChips, pf.Reg.RegNum(), pf.Reg.ToReg())
		frame, _ := cmd.MarshalBinary()
		fmt.Printf("              broadcast frame % 02X\n", frame)
	}
}
