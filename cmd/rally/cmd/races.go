package cmd

import (
	"fmt"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/modeyang/rally/pkg/archive"
)

func racesCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "races",
		Short: "List the races archived locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				home, err := homedir.Dir()
				if err != nil {
					return err
				}
				dataDir = filepath.Join(home, ".rally", "archive")
			}

			a, err := archive.Open(archive.Config{Path: dataDir})
			if err != nil {
				return err
			}
			defer a.Close()

			races, err := a.List()
			if err != nil {
				return err
			}

			for _, race := range races {
				fmt.Printf("%s  track=%s challenge=%s car=%s laps=%d\n",
					race.TrialTimestamp, race.Track, race.SelectedChallenge.Name, race.Car, race.Laps)
			}
			if len(races) == 0 {
				fmt.Println("No races found.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data", "", "Race archive directory (default ~/.rally/archive)")
	return cmd
}
