package model

// CollectibleItem is a geolocated object athletes pick up by passing close to it.
type CollectibleItem struct {
	ID         string
	Name       string
	UID        string
	Latitude   float64
	Longitude  float64
	PictureRef string
	Value      int
}

// Challenge records that an athlete satisfied a named achievement rule.
type Challenge struct {
	ID        string
	FullName  string
	AthleteID string
}
