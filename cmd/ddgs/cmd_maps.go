package main

import (
	"github.com/spf13/cobra"

	"github.com/FranksOps/ddgs/pkg/ddgs"
)

var mapsOpts ddgs.MapsOptions

var mapsCmd = &cobra.Command{
	Use:   "maps QUERY...",
	Short: "Search for places in an area",
	Long: `Search for places in an area given either as coordinates (--lat and --lon)
or as a place or address to geocode. With --max, the area is split into
smaller tiles until enough places are found.`,
	Example: `  ddgs maps pizza --city Naples --country Italy --max 50
  ddgs maps museum --lat 48.8566 --lon 2.3522 --radius 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		results, err := client.Maps(cmd.Context(), query(args), mapsOpts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), results)
	},
}

func init() {
	f := mapsCmd.Flags()
	f.StringVar(&mapsOpts.Place, "place", "", "free-form place to geocode")
	f.StringVar(&mapsOpts.Street, "street", "", "house number and street")
	f.StringVar(&mapsOpts.City, "city", "", "city")
	f.StringVar(&mapsOpts.County, "county", "", "county")
	f.StringVar(&mapsOpts.State, "state", "", "state")
	f.StringVar(&mapsOpts.Country, "country", "", "country")
	f.StringVar(&mapsOpts.PostalCode, "postal-code", "", "postal code")
	f.StringVar(&mapsOpts.Latitude, "lat", "", "latitude; skips geocoding together with --lon")
	f.StringVar(&mapsOpts.Longitude, "lon", "", "longitude")
	f.IntVar(&mapsOpts.Radius, "radius", 0, "expand the area by this many km")
	f.IntVarP(&mapsOpts.MaxResults, "max", "m", 0, "maximum places (0 = one round)")

	rootCmd.AddCommand(mapsCmd)
}
