package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gunline/firecontrol/internal/config"
)

func newWeaponsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "weapons",
		Short: "List configured weapon definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configs, err := config.GetWeaponConfigs()
			if err != nil {
				a.logger.Warn("Some weapon definitions are invalid", "error", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMODE\tRPM\tDAMAGE\tRANGE\tSPREAD\tMAGAZINE\tRESERVE\tRECOIL")
			for _, name := range config.WeaponNames() {
				c, ok := configs[name]
				if !ok {
					fmt.Fprintf(tw, "%s\tinvalid\n", name)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.1f\t%.0f\t%.2f\t%d\t%d\t%t\n",
					c.Name, c.FireMode, c.RoundsPerMinute, c.Damage, c.MaxRange,
					c.SpreadAngle, c.MagazineCapacity, c.ReserveAmmo, c.Recoil.EnableCameraRecoil)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return err
		},
	}
}
