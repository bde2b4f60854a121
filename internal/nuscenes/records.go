// Package nuscenes defines the rows of the nuScenes relational schema and
// the in-memory table set a conversion produces.
package nuscenes

// Fixed identifiers and values shared by every conversion.
const (
	MapToken        = "53992ee3023e5494b90c316c183be829"
	VisibilityToken = "0"

	ChannelLidar  = "LIDAR_TOP"
	ChannelRadar  = "RADAR_TOP"
	ModalityLidar = "lidar"
	ModalityRadar = "radar"

	FileFormatPCD = "pcd"
)

// Quaternion is a rotation in (w, x, y, z) order.
type Quaternion [4]float64

// Vec3 is a translation, position or extent.
type Vec3 [3]float64

// IdentityRotation is the rotation used for ego poses and calibrations.
var IdentityRotation = Quaternion{1, 0, 0, 0}

type Log struct {
	Token        string `json:"token"`
	Logfile      string `json:"logfile"`
	Vehicle      string `json:"vehicle"`
	DateCaptured string `json:"date_captured"`
	Location     string `json:"location"`
}

type Scene struct {
	Token            string `json:"token"`
	LogToken         string `json:"log_token"`
	NbrSamples       int    `json:"nbr_samples"`
	FirstSampleToken string `json:"first_sample_token"`
	LastSampleToken  string `json:"last_sample_token"`
	Name             string `json:"name"`
	Description      string `json:"description"`
}

type Sample struct {
	Token      string `json:"token"`
	SceneToken string `json:"scene_token"`
	Timestamp  int64  `json:"timestamp"`
	Prev       string `json:"prev"`
	Next       string `json:"next"`
}

// SampleAnnotation is one 3D box. AnnotationID carries the source object
// id so downstream tools can match boxes back to the labelling export.
type SampleAnnotation struct {
	Token           string     `json:"token"`
	SampleToken     string     `json:"sample_token"`
	InstanceToken   string     `json:"instance_token"`
	AnnotationID    int64      `json:"annotation_id"`
	Prev            string     `json:"prev"`
	Next            string     `json:"next"`
	AttributeTokens []string   `json:"attribute_tokens"`
	VisibilityToken string     `json:"visibility_token"`
	Translation     Vec3       `json:"translation"`
	Size            Vec3       `json:"size"`
	Rotation        Quaternion `json:"rotation"`
	NumLidarPts     int        `json:"num_lidar_pts"`
	NumRadarPts     int        `json:"num_radar_pts"`
}

type Instance struct {
	Token                string `json:"token"`
	CategoryToken        string `json:"category_token"`
	NbrAnnotations       int    `json:"nbr_annotations"`
	FirstAnnotationToken string `json:"first_annotation_token"`
	LastAnnotationToken  string `json:"last_annotation_token"`
}

type SampleData struct {
	Token                 string `json:"token"`
	SampleToken           string `json:"sample_token"`
	EgoPoseToken          string `json:"ego_pose_token"`
	CalibratedSensorToken string `json:"calibrated_sensor_token"`
	Timestamp             int64  `json:"timestamp"`
	FileFormat            string `json:"fileformat"`
	IsKeyFrame            bool   `json:"is_key_frame"`
	Height                int    `json:"height"`
	Width                 int    `json:"width"`
	Filename              string `json:"filename"`
	Prev                  string `json:"prev"`
	Next                  string `json:"next"`
}

type EgoPose struct {
	Token       string     `json:"token"`
	Timestamp   int64      `json:"timestamp"`
	Rotation    Quaternion `json:"rotation"`
	Translation Vec3       `json:"translation"`
}

type CalibratedSensor struct {
	Token           string      `json:"token"`
	SensorToken     string      `json:"sensor_token"`
	Translation     Vec3        `json:"translation"`
	Rotation        Quaternion  `json:"rotation"`
	CameraIntrinsic [][]float64 `json:"camera_intrinsic"`
}

type Sensor struct {
	Token    string `json:"token"`
	Channel  string `json:"channel"`
	Modality string `json:"modality"`
}

type Category struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Visibility struct {
	Token       string `json:"token"`
	Description string `json:"description"`
	Level       string `json:"level"`
}

type Map struct {
	Category  string   `json:"category"`
	Token     string   `json:"token"`
	Filename  string   `json:"filename"`
	LogTokens []string `json:"log_tokens"`
}

type Attribute struct {
	Token       string `json:"token"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
