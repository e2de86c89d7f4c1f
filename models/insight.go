package models

// RegionRank pairs a region name with the value it is ranked by.
type RegionRank struct {
	Name  string
	Value float64
	Count int
}

// InsightReport holds the console summary of a RegionReport.
type InsightReport struct {
	Title        string
	Window       string
	PropertyType PropertyType
	Counts       StageCounts

	Regions           int
	RegionsWithData   int
	SuppressedRegions int
	EmptyRegions      int

	MostExpensive    *RegionRank
	LeastExpensive   *RegionRank
	TopByMedian      []RegionRank
	ListingsByRegion []RegionRank
}
