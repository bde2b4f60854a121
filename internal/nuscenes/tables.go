package nuscenes

// Minter issues and reserves tokens.
type Minter interface {
	New() string
	Reserve(token string)
}

// Static describes the rows every dataset carries regardless of input.
type Static struct {
	CategoryName        string
	CategoryDescription string
}

// Tables is a complete table set. Slices are never nil so empty tables
// serialise as [].
type Tables struct {
	Attribute        []Attribute
	CalibratedSensor []CalibratedSensor
	Category         []Category
	EgoPose          []EgoPose
	Instance         []Instance
	Log              []Log
	Map              []Map
	Sample           []Sample
	SampleAnnotation []SampleAnnotation
	SampleData       []SampleData
	Scene            []Scene
	Sensor           []Sensor
	Visibility       []Visibility

	lidarSensor string
	radarSensor string
	category    string
}

// NewTables returns a table set holding the static rows: both sensors, the
// single category, the placeholder visibility and map rows and an empty
// attribute table.
func NewTables(m Minter, static Static) *Tables {
	m.Reserve(MapToken)
	m.Reserve(VisibilityToken)

	t := &Tables{
		Attribute:        []Attribute{},
		CalibratedSensor: []CalibratedSensor{},
		EgoPose:          []EgoPose{},
		Instance:         []Instance{},
		Log:              []Log{},
		Sample:           []Sample{},
		SampleAnnotation: []SampleAnnotation{},
		SampleData:       []SampleData{},
		Scene:            []Scene{},
	}

	t.lidarSensor = m.New()
	t.radarSensor = m.New()
	t.Sensor = []Sensor{
		{Token: t.lidarSensor, Channel: ChannelLidar, Modality: ModalityLidar},
		{Token: t.radarSensor, Channel: ChannelRadar, Modality: ModalityRadar},
	}

	t.category = m.New()
	t.Category = []Category{{Token: t.category, Name: static.CategoryName, Description: static.CategoryDescription}}

	t.Visibility = []Visibility{{Token: VisibilityToken, Description: "not implemented", Level: "0"}}

	t.Map = []Map{{
		Category:  "semantic_prior",
		Token:     MapToken,
		Filename:  "maps/" + MapToken + ".png",
		LogTokens: []string{},
	}}
	return t
}

// LidarSensorToken returns the LIDAR_TOP sensor token.
func (t *Tables) LidarSensorToken() string { return t.lidarSensor }

// RadarSensorToken returns the RADAR_TOP sensor token.
func (t *Tables) RadarSensorToken() string { return t.radarSensor }

// CategoryToken returns the token of the single object category.
func (t *Tables) CategoryToken() string { return t.category }

// LinkMapToLogs records every log on the map row.
func (t *Tables) LinkMapToLogs() {
	tokens := make([]string, 0, len(t.Log))
	for _, l := range t.Log {
		tokens = append(tokens, l.Token)
	}
	for i := range t.Map {
		t.Map[i].LogTokens = tokens
	}
}

// Table is one named table ready for serialisation.
type Table struct {
	Name string
	Rows any
	Len  int
}

// Named returns every table in name order.
func (t *Tables) Named() []Table {
	return []Table{
		{"attribute", t.Attribute, len(t.Attribute)},
		{"calibrated_sensor", t.CalibratedSensor, len(t.CalibratedSensor)},
		{"category", t.Category, len(t.Category)},
		{"ego_pose", t.EgoPose, len(t.EgoPose)},
		{"instance", t.Instance, len(t.Instance)},
		{"log", t.Log, len(t.Log)},
		{"map", t.Map, len(t.Map)},
		{"sample", t.Sample, len(t.Sample)},
		{"sample_annotation", t.SampleAnnotation, len(t.SampleAnnotation)},
		{"sample_data", t.SampleData, len(t.SampleData)},
		{"scene", t.Scene, len(t.Scene)},
		{"sensor", t.Sensor, len(t.Sensor)},
		{"visibility", t.Visibility, len(t.Visibility)},
	}
}

// TableNames lists the table file names without extension.
func TableNames() []string {
	return []string{
		"attribute", "calibrated_sensor", "category", "ego_pose", "instance",
		"log", "map", "sample", "sample_annotation", "sample_data", "scene",
		"sensor", "visibility",
	}
}
